package tracking

import (
	"time"

	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/geo"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// TripInProgress is the single live trip owned by the segmenter. It exists
// only while a trip is being accumulated and is destroyed on trip end or
// tracking stop.
type TripInProgress struct {
	StartTime              time.Time
	Points                 []models.LocationSample
	AccumulatedMiles       float64
	LastMovementTime       time.Time
	CandidateAppointmentID *int64
}

// EndedTrip is the completed segment handed to the linker and review queue.
// Its distance is final; edits happen only through the review flow.
type EndedTrip struct {
	StartTime           time.Time
	EndTime             time.Time
	Start               models.LocationSample
	End                 models.LocationSample
	Miles               float64
	UsableSamples       int
	LinkedAppointmentID *int64
}

// Segmenter turns the ordered sample stream into trip boundaries and
// mileage. All calls happen on the tracker's worker goroutine; the
// segmenter itself holds no locks.
type Segmenter struct {
	cfg    *config.Config
	logger *zap.Logger

	trip           *TripInProgress
	lastStationary *models.LocationSample

	// Stillness window: stillAnchor is the last sample that moved;
	// samples within StillRadiusM of it buffer here un-accumulated until
	// movement resumes or the dwell timeout closes the trip.
	stillAnchor *models.LocationSample
	stillBuf    []models.LocationSample

	// Candidate link for the segment that starts after a geofence enter.
	nextCandidate *int64
}

// NewSegmenter creates a segmenter.
func NewSegmenter(cfg *config.Config, logger *zap.Logger) *Segmenter {
	return &Segmenter{cfg: cfg, logger: logger}
}

// Active reports whether a trip is in progress.
func (s *Segmenter) Active() bool {
	return s.trip != nil
}

// Current returns a copy of the in-progress trip for status reads.
func (s *Segmenter) Current() *TripInProgress {
	if s.trip == nil {
		return nil
	}
	snapshot := *s.trip
	return &snapshot
}

// SetCandidate tags the next segment's candidate appointment link. Set by
// the linker after a geofence enter; consumed when the next trip starts.
func (s *Segmenter) SetCandidate(appointmentID *int64) {
	s.nextCandidate = appointmentID
}

// Offer feeds one sample through the segmenter. It returns a completed
// trip when the stillness timeout closes one, nil otherwise.
func (s *Segmenter) Offer(sample models.LocationSample) *EndedTrip {
	// Accuracy gate: bad fixes are discarded outright. They neither
	// accumulate distance nor reset the stillness timer.
	if sample.AccuracyM > s.cfg.AccuracyLimitM {
		s.logger.Debug("Discarded low-accuracy sample",
			zap.Float64("accuracy_m", sample.AccuracyM),
			zap.Float64("limit_m", s.cfg.AccuracyLimitM))
		return nil
	}

	if s.trip == nil {
		s.considerStart(sample)
		return nil
	}

	return s.accumulate(sample)
}

// considerStart opens a trip once a sample lands beyond the start distance
// from the last known stationary fix.
func (s *Segmenter) considerStart(sample models.LocationSample) {
	if s.lastStationary == nil {
		fix := sample
		s.lastStationary = &fix
		return
	}

	moved := geo.HaversineMiles(
		s.lastStationary.Latitude, s.lastStationary.Longitude,
		sample.Latitude, sample.Longitude,
	)
	if moved <= s.cfg.TripStartMiles {
		// Still parked; keep the freshest fix as the stationary anchor.
		fix := sample
		s.lastStationary = &fix
		return
	}

	s.trip = &TripInProgress{
		StartTime:              s.lastStationary.RecordedAt,
		Points:                 []models.LocationSample{*s.lastStationary},
		LastMovementTime:       sample.RecordedAt,
		CandidateAppointmentID: s.nextCandidate,
	}
	s.nextCandidate = nil
	s.addLeg(sample)
	anchor := sample
	s.stillAnchor = &anchor
	s.stillBuf = nil

	s.logger.Info("Trip started",
		zap.Time("start_time", s.trip.StartTime),
		zap.Float64("initial_miles", s.trip.AccumulatedMiles))
}

// accumulate advances the active trip with one sample.
func (s *Segmenter) accumulate(sample models.LocationSample) *EndedTrip {
	still := geo.DistanceMeters(
		s.stillAnchor.Latitude, s.stillAnchor.Longitude,
		sample.Latitude, sample.Longitude,
	) <= s.cfg.StillRadiusM

	if !still {
		// Movement resumed: fold any buffered still samples into the
		// path first so slow crawls are not undercounted.
		s.foldStillBuf()

		// A single segment never exceeds the trip mileage bound. A leg
		// that would cross it closes the segment at the previous fix
		// instead; this sample seeds the next one.
		last := s.trip.Points[len(s.trip.Points)-1]
		if s.trip.AccumulatedMiles+legMiles(last, sample) > s.cfg.MaxTripMiles {
			ended := s.closeTrip(last, last.RecordedAt)
			s.considerStart(sample)
			return ended
		}

		s.addLeg(sample)
		s.trip.LastMovementTime = sample.RecordedAt
		anchor := sample
		s.stillAnchor = &anchor
		return nil
	}

	s.stillBuf = append(s.stillBuf, sample)
	if sample.RecordedAt.Sub(s.stillAnchor.RecordedAt) >= s.cfg.StillTimeout {
		// Dwell exceeded: the trip ended where the stillness window
		// began. The buffered jitter inside the window is dropped.
		return s.closeTrip(*s.stillAnchor, s.stillAnchor.RecordedAt)
	}
	return nil
}

// ForceEnd closes the active trip immediately: geofence transitions and
// explicit stops take precedence over the stillness timer. Returns nil when
// no trip is in progress.
func (s *Segmenter) ForceEnd(at time.Time) *EndedTrip {
	if s.trip == nil {
		return nil
	}
	// Fold the still buffer; samples near the boundary are part of the
	// arrival, not jitter to drop.
	s.foldStillBuf()

	last := s.trip.Points[len(s.trip.Points)-1]
	return s.closeTrip(last, at)
}

// foldStillBuf appends buffered still samples to the active path. Folding
// stops before any leg that would push the segment past the mileage bound;
// the remainder is jitter inside the still radius and is dropped.
func (s *Segmenter) foldStillBuf() {
	for _, buffered := range s.stillBuf {
		last := s.trip.Points[len(s.trip.Points)-1]
		if s.trip.AccumulatedMiles+legMiles(last, buffered) > s.cfg.MaxTripMiles {
			break
		}
		s.addLeg(buffered)
	}
	s.stillBuf = nil
}

func legMiles(from, to models.LocationSample) float64 {
	return geo.HaversineMiles(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
}

func (s *Segmenter) addLeg(sample models.LocationSample) {
	last := s.trip.Points[len(s.trip.Points)-1]
	s.trip.AccumulatedMiles += geo.HaversineMiles(
		last.Latitude, last.Longitude,
		sample.Latitude, sample.Longitude,
	)
	s.trip.Points = append(s.trip.Points, sample)
}

// closeTrip finalizes the trip ending at the given sample, resets the
// segmenter, and discards degenerate segments.
func (s *Segmenter) closeTrip(end models.LocationSample, at time.Time) *EndedTrip {
	trip := s.trip
	s.trip = nil
	s.stillAnchor = nil
	s.stillBuf = nil
	fix := end
	s.lastStationary = &fix

	if len(trip.Points) < 2 || trip.AccumulatedMiles < s.cfg.MinTripMiles {
		s.logger.Debug("Discarded degenerate trip",
			zap.Int("samples", len(trip.Points)),
			zap.Float64("miles", trip.AccumulatedMiles))
		return nil
	}

	ended := &EndedTrip{
		StartTime:           trip.StartTime,
		EndTime:             at,
		Start:               trip.Points[0],
		End:                 end,
		Miles:               trip.AccumulatedMiles,
		UsableSamples:       len(trip.Points),
		LinkedAppointmentID: trip.CandidateAppointmentID,
	}

	s.logger.Info("Trip ended",
		zap.Time("start_time", ended.StartTime),
		zap.Time("end_time", ended.EndTime),
		zap.Float64("miles", ended.Miles),
		zap.Int("samples", ended.UsableSamples))
	return ended
}

// Reset drops all segmenter state, including the stationary fix. Used when
// tracking stops entirely so a stale fix never seeds the next session.
func (s *Segmenter) Reset() {
	s.trip = nil
	s.stillAnchor = nil
	s.stillBuf = nil
	s.lastStationary = nil
	s.nextCandidate = nil
}
