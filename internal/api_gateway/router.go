// Package api_gateway hosts the public HTTP surface: the content-generation intake
// endpoint and the dashboard-facing /api/v1 read/maintenance routes.
package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mediaforge/generation-ledger/internal/api_gateway/handler"
	"github.com/mediaforge/generation-ledger/internal/api_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	generationHandler *handler.GenerationHandler,
	walletHandler *handler.WalletHandler,
	jobHandler *handler.JobHandler,
	providerHandler *handler.ProviderHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS())
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())

	// Wrong-verb requests get a 405 with an explicit allowed list instead of gin's
	// default 404
	r.HandleMethodNotAllowed = true
	r.NoMethod(generationHandler.MethodNotAllowed)

	// Public intake endpoint; OPTIONS preflight is answered by the CORS middleware
	r.POST("/content-generation", generationHandler.Create)

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		wallets := v1.Group("/wallets")
		{
			wallets.POST("/:accountId", walletHandler.Create)
			wallets.GET("/:accountId", walletHandler.GetByAccountID)
			wallets.POST("/:accountId/credits", walletHandler.AddCredits)
			wallets.GET("/:accountId/transactions", walletHandler.GetTransactions)
		}

		jobs := v1.Group("/jobs")
		{
			jobs.GET("/:id", jobHandler.GetByID)
		}
		v1.GET("/accounts/:accountId/jobs", jobHandler.GetByAccountID)

		providers := v1.Group("/providers")
		{
			providers.GET("", providerHandler.List)
			providers.POST("/refresh", providerHandler.Refresh)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
