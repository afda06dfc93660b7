package tracking

import (
	"sort"

	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/geo"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// regionState is a registered region plus its binary membership state.
type regionState struct {
	region models.GeofenceRegion
	inside bool
}

// Monitor maintains circular regions around clients with same-day
// appointments and turns raw samples into enter/exit transitions. Each
// region is a two-state machine with hysteresis: enter at the inner radius,
// exit at the outer one, so a fix oscillating on the boundary does not
// produce transition chatter.
type Monitor struct {
	cfg     *config.Config
	logger  *zap.Logger
	regions map[int64]*regionState // keyed by appointment id
}

// NewMonitor creates a geofence monitor with no regions.
func NewMonitor(cfg *config.Config, logger *zap.Logger) *Monitor {
	return &Monitor{
		cfg:     cfg,
		logger:  logger,
		regions: make(map[int64]*regionState),
	}
}

// SetRegions rebuilds the region set from the day's appointments. Regions
// beyond the capacity limit are skipped and logged; the linker's fuzzy
// fallback covers those appointments. Existing membership state survives
// for appointments that remain registered.
func (m *Monitor) SetRegions(appointments []models.Appointment) {
	next := make(map[int64]*regionState)
	for _, appt := range appointments {
		if !appt.Active() || appt.Latitude == nil || appt.Longitude == nil {
			continue
		}
		if len(next) >= m.cfg.MaxRegions {
			m.logger.Warn("Geofence region limit reached, skipping appointment",
				zap.Int64("appointment_id", appt.ID),
				zap.String("client", appt.ClientName),
				zap.Int("limit", m.cfg.MaxRegions))
			continue
		}
		state := &regionState{
			region: models.GeofenceRegion{
				AppointmentID: appt.ID,
				ClientID:      appt.ClientID,
				ClientName:    appt.ClientName,
				Latitude:      *appt.Latitude,
				Longitude:     *appt.Longitude,
				RadiusM:       m.cfg.GeofenceEnterM,
			},
		}
		if prev, ok := m.regions[appt.ID]; ok {
			state.inside = prev.inside
		}
		next[appt.ID] = state
	}
	m.regions = next
	m.logger.Debug("Geofence regions registered", zap.Int("count", len(m.regions)))
}

// Observe evaluates one sample against every region and returns the
// transitions it caused, ordered by appointment id so a sample crossing
// overlapping regions is handled deterministically. Callers live on the
// tracker worker, so no locking here.
func (m *Monitor) Observe(sample models.LocationSample) []Transition {
	var transitions []Transition
	for _, state := range m.regions {
		d := geo.DistanceMeters(
			state.region.Latitude, state.region.Longitude,
			sample.Latitude, sample.Longitude,
		)
		switch {
		case !state.inside && d <= m.cfg.GeofenceEnterM:
			state.inside = true
			transitions = append(transitions, Transition{
				Kind:          TransitionEnter,
				AppointmentID: state.region.AppointmentID,
				ClientID:      state.region.ClientID,
				ClientName:    state.region.ClientName,
				At:            sample.RecordedAt,
			})
		case state.inside && d >= m.cfg.GeofenceExitM:
			state.inside = false
			transitions = append(transitions, Transition{
				Kind:          TransitionExit,
				AppointmentID: state.region.AppointmentID,
				ClientID:      state.region.ClientID,
				ClientName:    state.region.ClientName,
				At:            sample.RecordedAt,
			})
		}
	}
	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].AppointmentID < transitions[j].AppointmentID
	})
	return transitions
}

// RegionCount is exposed for status reads.
func (m *Monitor) RegionCount() int {
	return len(m.regions)
}
