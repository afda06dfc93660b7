package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/repository"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/review"
)

// ListPendingReview returns auto-tracked trips awaiting confirmation.
func (h *Handler) ListPendingReview(c *gin.Context) {
	trips, err := h.reviewQueue.Pending(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list pending trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list pending trips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trips})
}

// ConfirmTrip applies user edits and confirms a pending trip.
func (h *Handler) ConfirmTrip(c *gin.Context) {
	var input review.ConfirmInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	trip, err := h.reviewQueue.Confirm(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTripNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
		case errors.Is(err, repository.ErrNotPending):
			c.JSON(http.StatusConflict, gin.H{"error": "Trip is not pending review"})
		case isValidationError(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to confirm trip", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm trip"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trip})
}

// DiscardTrip drops a pending trip without saving it.
func (h *Handler) DiscardTrip(c *gin.Context) {
	if err := h.reviewQueue.Discard(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "Trip is not pending review"})
			return
		}
		h.logger.Error("Failed to discard trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to discard trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "discarded"})
}
