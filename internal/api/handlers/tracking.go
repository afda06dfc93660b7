package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/tracking"
)

type sampleBatch struct {
	Samples []models.LocationSample `json:"samples" binding:"required"`
}

// IngestSamples accepts a batch of location samples from the device and
// returns the sampling profile for the next batch. Samples arriving while
// tracking is inactive are acknowledged but not processed; they must never
// start a trip.
func (h *Handler) IngestSamples(c *gin.Context) {
	var batch sampleBatch
	if err := c.BindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	profile, err := h.tracker.Ingest(batch.Samples)
	if err != nil {
		if errors.Is(err, tracking.ErrNotTracking) {
			c.JSON(http.StatusAccepted, gin.H{
				"accepted": false,
				"profile":  profile,
			})
			return
		}
		h.logger.Error("Failed to ingest samples", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to ingest samples"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"accepted": true,
		"profile":  profile,
	})
}

// TrackingStatus returns the current pipeline snapshot.
func (h *Handler) TrackingStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.tracker.Status()})
}

type permissionInput struct {
	Granted *bool `json:"granted" binding:"required"`
}

// PutPermission records the device's location permission state. A revocation
// is picked up by the scheduler on its next evaluation, which stops the
// pipeline and disables auto tracking.
func (h *Handler) PutPermission(c *gin.Context) {
	var input permissionInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	h.permission.Store(*input.Granted)
	h.scheduler.SettingsChanged()

	c.JSON(http.StatusOK, gin.H{"granted": *input.Granted})
}
