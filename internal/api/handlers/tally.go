package handlers

import (
	"net/http"
	"strings"
	"time"

	"tally-agent/internal/api/interfaces"
	"tally-agent/internal/api/models"
	"tally-agent/internal/submission"

	"github.com/gin-gonic/gin"
)

// SubmitTally accepts a finalized tally from the entry wizard, persists it to
// the durable queue and attempts an immediate sync if the link is up. The
// response distinguishes "synced now" from "saved offline"; both are success.
func SubmitTally(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var state submission.WizardState
		if err := c.ShouldBindJSON(&state); err != nil {
			c.JSON(http.StatusBadRequest, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeInvalidRequest,
					Message: "Invalid request format",
					Details: err.Error(),
				},
				Timestamp: time.Now().Unix(),
			})
			return
		}

		online := services.GetMonitor().IsOnline()
		sub, err := submission.Build(state, online)
		if err != nil {
			code := models.ErrCodeInvalidRequest
			if strings.Contains(err.Error(), "not balanced") {
				code = models.ErrCodeTallyNotBalanced
			} else if strings.Contains(err.Error(), "no completed track") {
				code = models.ErrCodeNoTrackPresent
			}
			c.JSON(http.StatusBadRequest, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    code,
					Message: "Tally rejected",
					Details: err.Error(),
				},
				Timestamp: time.Now().Unix(),
			})
			return
		}

		payload, err := sub.Encode()
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeInternalError,
					Message: "Failed to encode tally",
					Details: err.Error(),
				},
				Timestamp: time.Now().Unix(),
			})
			return
		}

		imageBase64 := ""
		if sub.FPTP != nil && sub.FPTP.MuchulkaImageBase64 != "" {
			imageBase64 = sub.FPTP.MuchulkaImageBase64
		} else if sub.PR != nil {
			imageBase64 = sub.PR.MuchulkaImageBase64
		}

		result, err := services.GetSyncEngine().SubmitTally(c.Request.Context(), payload, imageBase64)
		if err != nil {
			// Storage failure is the only way a submit fails
			services.GetLogger().Error("Failed to persist tally: %v", err)
			c.JSON(http.StatusInternalServerError, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeStorageError,
					Message: "Failed to save tally",
					Details: err.Error(),
				},
				Timestamp: time.Now().Unix(),
			})
			return
		}

		c.JSON(http.StatusOK, models.BaseResponse{
			Success:   true,
			Message:   result.Message,
			Data:      result,
			Timestamp: time.Now().Unix(),
			RequestID: c.GetString("request_id"),
		})
	}
}

// CheckDiscrepancy evaluates the cross-track total comparison for in-progress
// wizard state. The result is advisory; the UI shows a warning but submission
// is never blocked.
func CheckDiscrepancy(services interfaces.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var state submission.WizardState
		if err := c.ShouldBindJSON(&state); err != nil {
			c.JSON(http.StatusBadRequest, models.BaseResponse{
				Success: false,
				Error: &models.ErrorInfo{
					Code:    models.ErrCodeInvalidRequest,
					Message: "Invalid request format",
					Details: err.Error(),
				},
				Timestamp: time.Now().Unix(),
			})
			return
		}

		discrepancy := submission.CheckDiscrepancy(state)

		c.JSON(http.StatusOK, models.BaseResponse{
			Success: true,
			Data: map[string]interface{}{
				"applicable":  discrepancy != nil,
				"discrepancy": discrepancy,
			},
			Timestamp: time.Now().Unix(),
		})
	}
}
