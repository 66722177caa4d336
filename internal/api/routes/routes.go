// Package routes wires handlers and middleware into the gin engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gridworx/helios-ai-gateway/internal/api/handlers"
	"github.com/gridworx/helios-ai-gateway/internal/api/middleware"
	"github.com/gridworx/helios-ai-gateway/internal/config"
)

// Handlers groups the handler set the router mounts.
type Handlers struct {
	AI     *handlers.AIHandler
	Health *handlers.HealthHandler
}

// Setup builds the gin engine with all routes registered.
func Setup(cfg *config.Config, h *Handlers, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWT.Secret))
	{
		ai := api.Group("/ai")
		{
			ai.GET("/status", h.AI.GetStatus)
			ai.POST("/chat", h.AI.Chat)
			ai.GET("/chat/:sessionId", h.AI.GetChatHistory)
			ai.DELETE("/chat/:sessionId", h.AI.ClearChatSession)

			admin := ai.Group("")
			admin.Use(middleware.AdminOnly())
			{
				admin.GET("/config", h.AI.GetConfig)
				admin.PUT("/config", h.AI.UpdateConfig)
				admin.POST("/test-connection", h.AI.TestConnection)
				admin.GET("/usage", h.AI.GetUsage)
			}
		}
	}

	return router
}
