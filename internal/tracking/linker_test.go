package tracking

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

func TestLinkerEnterWithinWindowTagsNextSegment(t *testing.T) {
	l := NewLinker(testConfig(), zap.NewNop())
	scheduled := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	l.SetAppointments([]models.Appointment{
		appt(1, 35.00, -101.80, scheduled, models.AppointmentScheduled),
	})

	d := l.OnTransition(Transition{
		Kind:          TransitionEnter,
		AppointmentID: 1,
		At:            scheduled.Add(20 * time.Minute),
	})
	if !d.ForceBoundary {
		t.Fatalf("enter did not force a segment boundary")
	}
	if d.NextCandidate == nil || *d.NextCandidate != 1 {
		t.Fatalf("enter within the window did not tag the next segment: %+v", d)
	}
	if d.ClosingLink != nil {
		t.Fatalf("enter linked the closing segment")
	}
}

func TestLinkerEnterOutsideWindowOnlyForcesBoundary(t *testing.T) {
	l := NewLinker(testConfig(), zap.NewNop())
	scheduled := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	l.SetAppointments([]models.Appointment{
		appt(1, 35.00, -101.80, scheduled, models.AppointmentScheduled),
	})

	d := l.OnTransition(Transition{
		Kind:          TransitionEnter,
		AppointmentID: 1,
		At:            scheduled.Add(2 * time.Hour),
	})
	if !d.ForceBoundary || d.NextCandidate != nil {
		t.Fatalf("late arrival should force a boundary without a candidate: %+v", d)
	}
}

func TestLinkerExitLinksClosingSegment(t *testing.T) {
	l := NewLinker(testConfig(), zap.NewNop())

	d := l.OnTransition(Transition{
		Kind:          TransitionExit,
		AppointmentID: 3,
		At:            time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	})
	if !d.ForceBoundary {
		t.Fatalf("exit did not force a segment boundary")
	}
	if d.ClosingLink == nil || *d.ClosingLink != 3 {
		t.Fatalf("exit did not link the segment just ended: %+v", d)
	}
}

func TestLinkerSuggestLink(t *testing.T) {
	cfg := testConfig()
	scheduled := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	siteLat, siteLng := 35.00, -101.80

	trip := func(endLat, endLng float64, endedAt time.Time) *EndedTrip {
		return &EndedTrip{
			EndTime: endedAt,
			End:     fix(endLat, endLng, endedAt),
		}
	}

	tests := []struct {
		name  string
		appts []models.Appointment
		trip  *EndedTrip
		want  *int64
	}{
		{
			name:  "end point near client site",
			appts: []models.Appointment{appt(1, siteLat, siteLng, scheduled, models.AppointmentScheduled)},
			trip:  trip(north(siteLat, 150), siteLng, scheduled.Add(3*time.Hour)),
			want:  ptr(int64(1)),
		},
		{
			name:  "end time near scheduled time",
			appts: []models.Appointment{appt(1, siteLat, siteLng, scheduled, models.AppointmentConfirmed)},
			trip:  trip(36.00, -102.00, scheduled.Add(15*time.Minute)),
			want:  ptr(int64(1)),
		},
		{
			name:  "far in place and time",
			appts: []models.Appointment{appt(1, siteLat, siteLng, scheduled, models.AppointmentScheduled)},
			trip:  trip(36.00, -102.00, scheduled.Add(3*time.Hour)),
			want:  nil,
		},
		{
			name:  "different day",
			appts: []models.Appointment{appt(1, siteLat, siteLng, scheduled, models.AppointmentScheduled)},
			trip:  trip(north(siteLat, 150), siteLng, scheduled.AddDate(0, 0, 1)),
			want:  nil,
		},
		{
			name:  "cancelled appointment never suggested",
			appts: []models.Appointment{appt(1, siteLat, siteLng, scheduled, models.AppointmentCancelled)},
			trip:  trip(north(siteLat, 150), siteLng, scheduled.Add(10*time.Minute)),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLinker(cfg, zap.NewNop())
			l.SetAppointments(tt.appts)
			got := l.SuggestLink(tt.trip)
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("suggested %d, want none", *got)
			case tt.want != nil && got == nil:
				t.Fatalf("suggested none, want %d", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Fatalf("suggested %d, want %d", *got, *tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
