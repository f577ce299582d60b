package handlers

import (
	"net/http"
	"time"

	"tally-agent/internal/api/interfaces"
	"tally-agent/internal/api/models"

	"github.com/gin-gonic/gin"
)

// Reference data handlers serve from the local cache only. An empty result
// means the data was never prefetched; the UI prompts for a login retry
// rather than treating it as an error.

// GetCandidates returns the cached candidate list for a constituency
func GetCandidates(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		constituencyID := c.Query("constituency_id")
		if constituencyID == "" {
			respondMissingParam(c, "constituency_id")
			return
		}

		candidates, err := services.CacheRepository().CandidatesByConstituency(constituencyID)
		if err != nil {
			respondStorageError(c, services, "Failed to read cached candidates", err)
			return
		}

		c.JSON(http.StatusOK, models.BaseResponse{
			Success:   true,
			Data:      candidates,
			Timestamp: time.Now().Unix(),
		})
	}
}

// GetParties returns the cached global party list
func GetParties(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		parties, err := services.CacheRepository().Parties()
		if err != nil {
			respondStorageError(c, services, "Failed to read cached parties", err)
			return
		}

		c.JSON(http.StatusOK, models.BaseResponse{
			Success:   true,
			Data:      parties,
			Timestamp: time.Now().Unix(),
		})
	}
}

// GetStations returns the cached polling stations for a ward
func GetStations(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		wardID := c.Query("ward_id")
		if wardID == "" {
			respondMissingParam(c, "ward_id")
			return
		}

		stations, err := services.CacheRepository().StationsByWard(wardID)
		if err != nil {
			respondStorageError(c, services, "Failed to read cached stations", err)
			return
		}

		c.JSON(http.StatusOK, models.BaseResponse{
			Success:   true,
			Data:      stations,
			Timestamp: time.Now().Unix(),
		})
	}
}

// GetBooths returns the cached polling booths for a station
func GetBooths(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		stationID := c.Query("station_id")
		if stationID == "" {
			respondMissingParam(c, "station_id")
			return
		}

		booths, err := services.CacheRepository().BoothsByStation(stationID)
		if err != nil {
			respondStorageError(c, services, "Failed to read cached booths", err)
			return
		}

		c.JSON(http.StatusOK, models.BaseResponse{
			Success:   true,
			Data:      booths,
			Timestamp: time.Now().Unix(),
		})
	}
}

func respondMissingParam(c *gin.Context, name string) {
	c.JSON(http.StatusBadRequest, models.BaseResponse{
		Success: false,
		Error: &models.ErrorInfo{
			Code:    models.ErrCodeInvalidRequest,
			Message: name + " is required",
		},
		Timestamp: time.Now().Unix(),
	})
}

func respondStorageError(c *gin.Context, services interfaces.Services, message string, err error) {
	services.GetLogger().Error("%s: %v", message, err)
	c.JSON(http.StatusInternalServerError, models.BaseResponse{
		Success: false,
		Error: &models.ErrorInfo{
			Code:    models.ErrCodeStorageError,
			Message: message,
			Details: err.Error(),
		},
		Timestamp: time.Now().Unix(),
	})
}
