package handlers

import (
	"net/http"
	"time"

	"tally-agent/internal/api/interfaces"
	"tally-agent/internal/api/models"

	"github.com/gin-gonic/gin"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	}
}

// GetStatus returns the aggregate connectivity and queue status shown in the
// UI banner
func GetStatus(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := services.GetStatusObserver().Snapshot()
		lastSweepAt, lastSweepFull := services.GetSyncEngine().LastSweep()

		status := models.StatusResponse{
			Online:         snapshot.Online,
			PendingCount:   snapshot.PendingCount,
			LastSweepFully: lastSweepFull,
		}
		if !lastSweepAt.IsZero() {
			status.LastSweepAt = lastSweepAt.Unix()
		}
		if !snapshot.CheckedAt.IsZero() {
			status.CheckedAt = snapshot.CheckedAt.Unix()
		}
		if !snapshot.Online && snapshot.PendingCount > 0 {
			status.Banner = "Offline. Pending tallies will auto-sync when network returns."
		}

		c.JSON(http.StatusOK, models.BaseResponse{
			Success:   true,
			Data:      status,
			Timestamp: time.Now().Unix(),
			RequestID: c.GetString("request_id"),
		})
	}
}

// TriggerSync manually starts a sync sweep
func TriggerSync(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		pendingCount, err := services.GetSyncEngine().PendingCount()
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeStorageError,
					Message: "Failed to read pending count",
					Details: err.Error(),
				},
				Timestamp: time.Now().Unix(),
			})
			return
		}

		if pendingCount == 0 {
			c.JSON(http.StatusOK, models.BaseResponse{
				Success:   true,
				Message:   "No pending tallies to sync",
				Timestamp: time.Now().Unix(),
			})
			return
		}

		services.GetSyncEngine().OnOnline()

		c.JSON(http.StatusAccepted, models.BaseResponse{
			Success: true,
			Message: "Sync sweep initiated",
			Data: map[string]interface{}{
				"pending_count": pendingCount,
			},
			Timestamp: time.Now().Unix(),
		})
	}
}
