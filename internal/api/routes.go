package api

import (
	"tally-agent/internal/api/handlers"
	"tally-agent/internal/api/interfaces"
	"tally-agent/internal/api/middlewares"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes with proper middleware
func SetupRoutes(router *gin.Engine, services interfaces.Services) {
	// Global middleware
	router.Use(middlewares.Recovery())
	router.Use(middlewares.CORS())
	router.Use(middlewares.Security())
	router.Use(middlewares.RequestLogging(services.GetLogger()))

	// Health check (no auth required)
	router.GET("/health", handlers.HealthCheck(services))
	router.GET("/ping", handlers.HealthCheck(services))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Session
		v1.POST("/login", handlers.Login(services))

		// Status and sync control
		v1.GET("/status", handlers.GetStatus(services))
		v1.POST("/sync", handlers.TriggerSync(services))
		v1.GET("/synclog", handlers.GetSyncLog(services))

		// Tally entry. Registered without a trailing slash so POST /tally
		// is served directly instead of through a 307 redirect.
		v1.POST("/tally", handlers.SubmitTally(services))
		v1.POST("/tally/discrepancy", handlers.CheckDiscrepancy(services))

		// Cached reference data
		data := v1.Group("/data")
		{
			data.GET("/candidates", handlers.GetCandidates(services))
			data.GET("/parties", handlers.GetParties(services))
			data.GET("/stations", handlers.GetStations(services))
			data.GET("/booths", handlers.GetBooths(services))
		}

		// WebSocket status stream
		v1.GET("/ws/status", handlers.StatusWebSocket(services))
	}
}
