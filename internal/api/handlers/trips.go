package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/repository"
)

// tripInput is the manual trip entry payload. Manual entries share the
// miles/date invariants with auto-tracked trips but never enter review.
type tripInput struct {
	Date                string  `json:"date" binding:"required"` // YYYY-MM-DD
	Miles               float64 `json:"miles" binding:"required"`
	Purpose             string  `json:"purpose" binding:"required"`
	Notes               string  `json:"notes"`
	StartDisplayName    string  `json:"start_display_name"`
	EndDisplayName      string  `json:"end_display_name"`
	LinkedAppointmentID *int64  `json:"linked_appointment_id"`
}

// ListTrips returns committed trips in a date range.
func (h *Handler) ListTrips(c *gin.Context) {
	start, end, ok := parseRange(c)
	if !ok {
		return
	}

	trips, err := h.tripRepo.ListInRange(c.Request.Context(), start, end)
	if err != nil {
		h.logger.Error("Failed to list trips", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list trips"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trips})
}

// GetTrip returns a single trip by id.
func (h *Handler) GetTrip(c *gin.Context) {
	trip, err := h.tripRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		h.logger.Error("Failed to get trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trip})
}

// CreateTrip creates a manually entered trip.
func (h *Handler) CreateTrip(c *gin.Context) {
	var input tripInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	trip := &models.MileageTrip{
		Date:                date,
		Miles:               input.Miles,
		Purpose:             input.Purpose,
		Notes:               input.Notes,
		StartDisplayName:    input.StartDisplayName,
		EndDisplayName:      input.EndDisplayName,
		LinkedAppointmentID: input.LinkedAppointmentID,
		AutoTracked:         false,
		ReviewStatus:        models.ReviewStatusManual,
	}

	if err := h.tripRepo.Create(c.Request.Context(), trip); err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create trip"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": trip})
}

// UpdateTrip edits a trip's fields; allowed any time after commit.
func (h *Handler) UpdateTrip(c *gin.Context) {
	trip, err := h.tripRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		h.logger.Error("Failed to get trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get trip"})
		return
	}

	var input tripInput
	if err := c.BindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if input.Date != "" {
		date, err := time.Parse("2006-01-02", input.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		trip.Date = date
	}
	if input.Miles > 0 {
		trip.Miles = input.Miles
	}
	if input.Purpose != "" {
		trip.Purpose = input.Purpose
	}
	trip.Notes = input.Notes
	if input.StartDisplayName != "" {
		trip.StartDisplayName = input.StartDisplayName
	}
	if input.EndDisplayName != "" {
		trip.EndDisplayName = input.EndDisplayName
	}
	// The engine never silently clears a link; only an explicit user
	// choice changes it.
	if input.LinkedAppointmentID != nil {
		trip.LinkedAppointmentID = input.LinkedAppointmentID
	}

	if err := h.tripRepo.Update(c.Request.Context(), trip); err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to update trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": trip})
}

// DeleteTrip tombstones a trip. The client has a short undo window.
func (h *Handler) DeleteTrip(c *gin.Context) {
	if err := h.tripRepo.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		h.logger.Error("Failed to delete trip", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete trip"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UndoDelete reverts a recent soft delete.
func (h *Handler) UndoDelete(c *gin.Context) {
	if err := h.tripRepo.Undo(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrUndoExpired) {
			c.JSON(http.StatusConflict, gin.H{"error": "Undo window expired"})
			return
		}
		h.logger.Error("Failed to undo delete", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to undo delete"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}

func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start date, expected YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end date, expected YYYY-MM-DD"})
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func isValidationError(err error) bool {
	return errors.Is(err, models.ErrMilesOutOfRange) || errors.Is(err, models.ErrFutureDate)
}
