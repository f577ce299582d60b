package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tally-agent/internal/api/interfaces"
	"tally-agent/internal/api/models"

	"github.com/gin-gonic/gin"
)

// GetSyncLog returns recent sync activity, newest first
func GetSyncLog(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
				limit = parsed
			}
		}

		entries, err := services.SyncLogRepository().List(limit)
		if err != nil {
			respondStorageError(c, services, "Failed to read sync log", err)
			return
		}

		c.JSON(http.StatusOK, models.BaseResponse{
			Success:   true,
			Data:      entries,
			Timestamp: time.Now().Unix(),
		})
	}
}
