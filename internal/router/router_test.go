package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autoreply/internal/handlers"
	"autoreply/internal/services"
	"autoreply/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, adminToken string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts, err := store.NewThreadStore(2, time.Hour, 10)
	require.NoError(t, err)

	r := gin.New()
	RegisterRoutes(r, Handlers{
		Webhook:    handlers.NewWebhookHandler("tok", services.NewDispatcher(nil, 1, nil), nil),
		Thread:     handlers.NewThreadHandler(ts),
		AdminToken: adminToken,
	})
	return r
}

func serve(r *gin.Engine, method, path, auth string) int {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRoutes(t *testing.T) {
	r := newEngine(t, "admin")

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", ""))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/metrics", ""))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=1", ""))
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/admin/threads/T1", ""))
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/admin/threads/T1", "Bearer admin"))
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	r := newEngine(t, "")
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/admin/threads/T1", "Bearer "))
}
