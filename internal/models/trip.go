package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Review status of an auto-tracked trip. Transitions are monotonic:
// pending_review -> confirmed | auto_committed, both terminal. Manual
// entries are created as "manual" and never enter the review flow.
const (
	ReviewStatusPending       = "pending_review"
	ReviewStatusConfirmed     = "confirmed"
	ReviewStatusAutoCommitted = "auto_committed"
	ReviewStatusManual        = "manual"
)

// Sync flag for the offline-first collaborator.
const (
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
)

// DefaultPurpose is pre-filled on auto-tracked trips entering review.
const DefaultPurpose = "Client Visit"

var (
	ErrMilesOutOfRange = errors.New("miles must be greater than 0 and at most 1000")
	ErrFutureDate      = errors.New("trip date must not be in the future")
)

var validate = validator.New()

// MileageTrip is a committed or pending business trip, auto-tracked or
// manually entered. Soft-deleted rows keep their data under a tombstone
// so sync and undo can revert them.
type MileageTrip struct {
	ID                     string     `json:"id" db:"id"`
	Date                   time.Time  `json:"date" db:"date"`
	StartLatitude          *float64   `json:"start_latitude,omitempty" db:"start_latitude"`
	StartLongitude         *float64   `json:"start_longitude,omitempty" db:"start_longitude"`
	EndLatitude            *float64   `json:"end_latitude,omitempty" db:"end_latitude"`
	EndLongitude           *float64   `json:"end_longitude,omitempty" db:"end_longitude"`
	StartAddress           *Address   `json:"start_address,omitempty" db:"start_address"`
	EndAddress             *Address   `json:"end_address,omitempty" db:"end_address"`
	StartDisplayName       string     `json:"start_display_name,omitempty" db:"start_display_name"`
	EndDisplayName         string     `json:"end_display_name,omitempty" db:"end_display_name"`
	Miles                  float64    `json:"miles" db:"miles" validate:"gt=0,lte=1000"`
	Purpose                string     `json:"purpose" db:"purpose"`
	Notes                  string     `json:"notes,omitempty" db:"notes"`
	AutoTracked            bool       `json:"auto_tracked" db:"auto_tracked"`
	ReviewStatus           string     `json:"review_status" db:"review_status"`
	LinkedAppointmentID    *int64     `json:"linked_appointment_id,omitempty" db:"linked_appointment_id"`
	SuggestedAppointmentID *int64     `json:"suggested_appointment_id,omitempty" db:"suggested_appointment_id"`
	StartedAt              *time.Time `json:"started_at,omitempty" db:"started_at"`
	EndedAt                *time.Time `json:"ended_at,omitempty" db:"ended_at"`
	SyncStatus             string     `json:"sync_status" db:"sync_status"`
	DeletedAt              *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate enforces the trip invariants shared by manual and auto-tracked
// entries: positive bounded mileage and a date that is not in the future.
func (t *MileageTrip) Validate(now time.Time) error {
	if err := validate.Struct(t); err != nil {
		return ErrMilesOutOfRange
	}
	// Compare on calendar date, not instant; a trip recorded late in the
	// evening is still "today" regardless of server timezone drift.
	today := now.Truncate(24 * time.Hour)
	if t.Date.Truncate(24 * time.Hour).After(today) {
		return ErrFutureDate
	}
	return nil
}

// Committed reports whether the trip counts toward totals and range reads.
func (t *MileageTrip) Committed() bool {
	switch t.ReviewStatus {
	case ReviewStatusConfirmed, ReviewStatusAutoCommitted, ReviewStatusManual:
		return true
	}
	return false
}
