package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/nichegen/pipeline/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log *slog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		niches := v1.Group("/niches")
		{
			niches.GET("", handler.ListNiches)
			niches.GET("/:slug", handler.GetNiche)
			niches.GET("/:slug/products", handler.GetNicheProducts)
		}
	}

	return router
}
