package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

type settingsInput struct {
	Enabled     bool `json:"enabled"`
	StartMinute int  `json:"start_minute" binding:"gte=0,lt=1440"`
	EndMinute   int  `json:"end_minute" binding:"gte=0,lte=1440"`
	DaysMask    int  `json:"days_mask" binding:"gte=0,lte=127"`
}

// GetSettings returns the auto-tracking configuration.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.settingsRepo.Get(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// PutSettings replaces the auto-tracking configuration and kicks the
// scheduler so the change applies at the next evaluation boundary.
func (h *Handler) PutSettings(c *gin.Context) {
	var input settingsInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if input.StartMinute >= input.EndMinute {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Window start must be before end"})
		return
	}

	settings := models.AutoTrackingSettings{
		Enabled:     input.Enabled,
		StartMinute: input.StartMinute,
		EndMinute:   input.EndMinute,
		DaysMask:    input.DaysMask,
	}
	if err := h.settingsRepo.Put(c.Request.Context(), settings); err != nil {
		h.logger.Error("Failed to save settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	h.scheduler.SettingsChanged()
	c.JSON(http.StatusOK, gin.H{"data": settings})
}
