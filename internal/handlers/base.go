package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RenderError writes a JSON error body
func RenderError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// NotFound aborts with a plain 404 the way the Graph webhook sender expects
func NotFound(c *gin.Context) {
	c.AbortWithStatus(http.StatusNotFound)
}
