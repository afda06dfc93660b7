package tracking

import (
	"time"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// TransitionKind distinguishes geofence enter/exit events.
type TransitionKind string

const (
	TransitionEnter TransitionKind = "enter"
	TransitionExit  TransitionKind = "exit"
)

// Transition is a geofence boundary crossing. Transitions, not raw samples,
// are what the linker consumes.
type Transition struct {
	Kind          TransitionKind `json:"kind"`
	AppointmentID int64          `json:"appointment_id"`
	ClientID      int64          `json:"client_id"`
	ClientName    string         `json:"client_name"`
	At            time.Time      `json:"at"`
}

// StopReason tags why the pipeline is flushing the in-progress trip.
type StopReason string

const (
	StopUser       StopReason = "user"
	StopScheduled  StopReason = "schedule"
	StopPermission StopReason = "permission"
)

type eventKind int

const (
	evSample eventKind = iota
	evStop
	evRefreshRegions
)

// event is the single merged unit the worker consumes. Sample events and
// the transitions they cause are processed in arrival order on one
// goroutine, which is what makes geofence precedence over the stillness
// timer well-defined.
type event struct {
	kind    eventKind
	sample  models.LocationSample
	reason  StopReason
	regions []models.Appointment
}
