package tracking

import (
	"time"

	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/geo"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// LinkDecision is the linker's verdict on a geofence transition.
type LinkDecision struct {
	ForceBoundary bool   // end the active segment now
	ClosingLink   *int64 // applied to the segment that just ended
	NextCandidate *int64 // carried into the segment that starts next
}

// Linker correlates geofence transitions and completed trips with the
// appointment schedule. It holds the same day's appointments the monitor
// builds regions from, refreshed together on the tracker worker.
type Linker struct {
	cfg          *config.Config
	logger       *zap.Logger
	appointments []models.Appointment
}

// NewLinker creates a linker with an empty schedule.
func NewLinker(cfg *config.Config, logger *zap.Logger) *Linker {
	return &Linker{cfg: cfg, logger: logger}
}

// SetAppointments replaces the day's schedule.
func (l *Linker) SetAppointments(appointments []models.Appointment) {
	l.appointments = appointments
}

// OnTransition decides what a geofence crossing means for segmentation.
// Arrival at a client whose appointment is within the link window ends the
// active segment and tags the next one; departure ends the segment and
// links it to the appointment just left. Transitions always force a
// boundary ahead of the stillness timer.
func (l *Linker) OnTransition(tr Transition) LinkDecision {
	switch tr.Kind {
	case TransitionEnter:
		decision := LinkDecision{ForceBoundary: true}
		if appt := l.findByID(tr.AppointmentID); appt != nil &&
			absDuration(tr.At.Sub(appt.ScheduledAt)) <= l.cfg.LinkWindow {
			id := appt.ID
			decision.NextCandidate = &id
			l.logger.Info("Geofence enter matched appointment",
				zap.Int64("appointment_id", appt.ID),
				zap.String("client", tr.ClientName))
		}
		return decision
	case TransitionExit:
		id := tr.AppointmentID
		return LinkDecision{ForceBoundary: true, ClosingLink: &id}
	}
	return LinkDecision{}
}

// SuggestLink is the softer commit-time rule for trips that never touched a
// geofence: an end point near a scheduled client's site, or an end time
// within the link window of a same-day appointment, yields a suggestion the
// user confirms rather than an applied link.
func (l *Linker) SuggestLink(trip *EndedTrip) *int64 {
	for i := range l.appointments {
		appt := &l.appointments[i]
		if !appt.Active() || !sameDate(appt.ScheduledAt, trip.EndTime) {
			continue
		}
		if appt.Latitude != nil && appt.Longitude != nil &&
			geo.WithinRadius(*appt.Latitude, *appt.Longitude, trip.End.Latitude, trip.End.Longitude, l.cfg.GeofenceEnterM) {
			id := appt.ID
			return &id
		}
		if absDuration(trip.EndTime.Sub(appt.ScheduledAt)) <= l.cfg.LinkWindow {
			id := appt.ID
			return &id
		}
	}
	return nil
}

// NearSite returns an active appointment whose client site lies within the
// radius of the point, or nil.
func (l *Linker) NearSite(lat, lng, radiusM float64) *models.Appointment {
	for i := range l.appointments {
		appt := &l.appointments[i]
		if !appt.Active() || appt.Latitude == nil || appt.Longitude == nil {
			continue
		}
		if geo.WithinRadius(*appt.Latitude, *appt.Longitude, lat, lng, radiusM) {
			return appt
		}
	}
	return nil
}

func (l *Linker) findByID(id int64) *models.Appointment {
	for i := range l.appointments {
		if l.appointments[i].ID == id {
			return &l.appointments[i]
		}
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
