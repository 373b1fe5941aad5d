package router

import (
	"autoreply/internal/handlers"
	"autoreply/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Webhook    *handlers.WebhookHandler
	Thread     *handlers.ThreadHandler
	AdminToken string
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// 公共路由 (Public Routes)
	r.GET("/webhook", h.Webhook.Verify)   // 订阅校验
	r.POST("/webhook", h.Webhook.Receive) // 事件推送
	r.GET("/health", h.Thread.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 管理路由，未配置 ADMIN_TOKEN 时不开放
	if h.AdminToken == "" {
		return
	}
	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired(h.AdminToken))
	{
		admin.GET("/threads/:threadID", h.Thread.Show)
		admin.DELETE("/threads/:threadID/replies/:commentID", h.Thread.ReleaseReply)
	}
}
