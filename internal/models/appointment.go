package models

import "time"

// Appointment statuses. Only active appointments get geofence regions.
const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

// Appointment is the schedule collaborator's shape: a client visit with a
// geocoded site, consumed read-only by the geofence monitor and the linker.
type Appointment struct {
	ID          int64     `json:"id" db:"id"`
	ClientID    int64     `json:"client_id" db:"client_id"`
	ClientName  string    `json:"client_name" db:"client_name"`
	Latitude    *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64  `json:"longitude,omitempty" db:"longitude"`
	Address     string    `json:"address,omitempty" db:"address"`
	ScheduledAt time.Time `json:"scheduled_at" db:"scheduled_at"`
	Status      string    `json:"status" db:"status"`
}

// Active reports whether the appointment still warrants a geofence region.
func (a Appointment) Active() bool {
	return a.Status == AppointmentScheduled || a.Status == AppointmentConfirmed
}

// ClientSite is the client address lookup result, used for trip display
// names.
type ClientSite struct {
	ClientID  int64   `json:"client_id" db:"client_id"`
	Name      string  `json:"name" db:"name"`
	Address   string  `json:"address" db:"address"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}
