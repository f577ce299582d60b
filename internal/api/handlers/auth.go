package handlers

import (
	"context"
	"net/http"
	"time"

	"tally-agent/internal/api/interfaces"
	"tally-agent/internal/api/models"

	"github.com/gin-gonic/gin"
)

// Login authenticates a field agent against the central office and kicks off
// the reference data prefetch for their constituency. Prefetch runs in the
// background and never fails the login; a partial cache fills in on the next
// login attempt.
func Login(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Phone string `json:"phone" binding:"required"`
			PIN   string `json:"pin" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeInvalidRequest,
					Message: "Phone and PIN are required",
					Details: err.Error(),
				},
				Timestamp: time.Now().Unix(),
			})
			return
		}

		session, err := services.GetUpstream().Login(c.Request.Context(), req.Phone, req.PIN)
		if err != nil {
			services.GetLogger().Warning("Login failed for %s: %v", req.Phone, err)
			c.JSON(http.StatusUnauthorized, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeUnauthorized,
					Message: "Login failed",
					Details: err.Error(),
				},
				Timestamp: time.Now().Unix(),
			})
			return
		}

		services.GetLogger().Info("Agent %s logged in for constituency %s", session.ID, session.ConstituencyID)

		// Detached context: prefetch outlives this request
		go func(constituencyID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			services.GetPrefetcher().Prefetch(ctx, constituencyID)
		}(session.ConstituencyID)

		c.JSON(http.StatusOK, models.BaseResponse{
			Success: true,
			Message: "Login successful",
			Data: models.LoginResponse{
				AgentID:           session.ID,
				AgentName:         session.Name,
				ConstituencyID:    session.ConstituencyID,
				ConstituencyLabel: session.ConstituencyLabel,
			},
			Timestamp: time.Now().Unix(),
			RequestID: c.GetString("request_id"),
		})
	}
}
