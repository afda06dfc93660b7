package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/geocode"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// Session states and events.
const (
	SessionStopped = "stopped"
	SessionRunning = "running"

	eventStart = "start"
	eventStop  = "stop"
)

var ErrNotTracking = errors.New("tracking session is not running")

// TripSink receives completed auto-tracked trips. The review queue is the
// production implementation.
type TripSink interface {
	Enqueue(ctx context.Context, trip *models.MileageTrip)
}

// ScheduleSource is the read-only appointment collaborator.
type ScheduleSource interface {
	AppointmentsOn(ctx context.Context, date time.Time) ([]models.Appointment, error)
	ClientSite(ctx context.Context, clientID int64) (*models.ClientSite, error)
}

// Publisher pushes state updates to connected clients.
type Publisher interface {
	Broadcast(msgType string, data any)
}

// Status is the tracker snapshot exposed over the API.
type Status struct {
	Active         bool       `json:"active"`
	RegionCount    int        `json:"region_count"`
	TripInProgress bool       `json:"trip_in_progress"`
	TripMiles      float64    `json:"trip_miles,omitempty"`
	TripStartedAt  *time.Time `json:"trip_started_at,omitempty"`
}

// Tracker owns the tracking pipeline: one worker goroutine consumes the
// merged stream of location samples and stop commands, feeds the geofence
// monitor first and the segmenter second, and hands ended trips to the
// sink. TripInProgress is mutated only on that worker, so a stillness
// timeout and a geofence transition can never race.
type Tracker struct {
	cfg      *config.Config
	logger   *zap.Logger
	sink     TripSink
	schedule ScheduleSource
	geocoder geocode.Geocoder
	hub      Publisher

	segmenter *Segmenter
	monitor   *Monitor
	linker    *Linker

	mu      sync.Mutex
	session *fsm.FSM
	events  chan event
	wg      sync.WaitGroup
	recent  []models.LocationSample
	status  Status
}

// NewTracker wires the pipeline components.
func NewTracker(
	cfg *config.Config,
	logger *zap.Logger,
	sink TripSink,
	schedule ScheduleSource,
	geocoder geocode.Geocoder,
	hub Publisher,
) *Tracker {
	t := &Tracker{
		cfg:       cfg,
		logger:    logger,
		sink:      sink,
		schedule:  schedule,
		geocoder:  geocoder,
		hub:       hub,
		segmenter: NewSegmenter(cfg, logger),
		monitor:   NewMonitor(cfg, logger),
		linker:    NewLinker(cfg, logger),
	}
	t.session = fsm.NewFSM(
		SessionStopped,
		fsm.Events{
			{Name: eventStart, Src: []string{SessionStopped}, Dst: SessionRunning},
			{Name: eventStop, Src: []string{SessionRunning}, Dst: SessionStopped},
		},
		fsm.Callbacks{},
	)
	return t
}

// Running reports whether the session is active.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session.Current() == SessionRunning
}

// Start begins a tracking session. Idempotent: starting a running session
// is a no-op.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if !t.session.Can(eventStart) {
		t.mu.Unlock()
		return nil
	}

	appts := t.loadSchedule(ctx)
	t.monitor.SetRegions(appts)
	t.linker.SetAppointments(appts)

	t.events = make(chan event, 256)
	if err := t.session.Event(ctx, eventStart); err != nil {
		t.mu.Unlock()
		return err
	}
	t.wg.Add(1)
	events := t.events
	t.mu.Unlock()

	go t.run(ctx, events)

	t.logger.Info("Tracking session started", zap.Int("regions", t.monitor.RegionCount()))
	// Persistent "tracking active" indicator for the user.
	t.hub.Broadcast("tracking_state", map[string]any{"active": true})
	return nil
}

// Stop ends the session, flushing any trip in progress to the sink rather
// than discarding it. Idempotent.
func (t *Tracker) Stop(reason StopReason) {
	t.mu.Lock()
	if !t.session.Can(eventStop) {
		t.mu.Unlock()
		return
	}
	if err := t.session.Event(context.Background(), eventStop); err != nil {
		t.mu.Unlock()
		return
	}
	events := t.events
	t.mu.Unlock()

	// The FSM transition above admits exactly one stopper, so this is the
	// only evStop ever sent for the session. The send happens outside the
	// lock: the worker needs it to drain a full queue.
	events <- event{kind: evStop, reason: reason}

	t.wg.Wait()

	t.logger.Info("Tracking session stopped", zap.String("reason", string(reason)))
	t.hub.Broadcast("tracking_state", map[string]any{"active": false, "reason": string(reason)})
}

// Ingest accepts a sample batch from the device and returns the sampling
// profile it should switch to. Samples arriving outside an active session
// are dropped (they must never start a trip) but still steer the profile.
func (t *Tracker) Ingest(samples []models.LocationSample) (SamplingProfile, error) {
	t.mu.Lock()
	var battery *int
	for _, s := range samples {
		t.recent = append(t.recent, s)
		if s.BatteryPct != nil {
			battery = s.BatteryPct
		}
	}
	if len(t.recent) > 10 {
		t.recent = t.recent[len(t.recent)-10:]
	}
	profile := NextProfile(t.cfg, t.recent, battery)
	running := t.session.Current() == SessionRunning
	events := t.events
	t.mu.Unlock()

	if !running {
		return profile, ErrNotTracking
	}

	for _, s := range samples {
		select {
		case events <- event{kind: evSample, sample: s}:
		default:
			// Bounded queue: shedding a sample degrades accuracy but
			// never blocks the ingest path.
			t.logger.Warn("Sample queue full, dropping sample")
		}
	}
	return profile, nil
}

// RefreshRegions reloads the day's appointments into the geofence monitor
// and linker. Called by the scheduler on day rollover and periodically so
// cancelled or completed appointments lose their regions.
func (t *Tracker) RefreshRegions(ctx context.Context) {
	t.mu.Lock()
	running := t.session.Current() == SessionRunning
	events := t.events
	t.mu.Unlock()
	if !running {
		return
	}

	appts := t.loadSchedule(ctx)
	select {
	case events <- event{kind: evRefreshRegions, regions: appts}:
	default:
		t.logger.Warn("Sample queue full, dropping region refresh")
	}
}

// Status returns a snapshot for the status endpoint.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	status := t.status
	status.Active = t.session.Current() == SessionRunning
	return status
}

func (t *Tracker) loadSchedule(ctx context.Context) []models.Appointment {
	appts, err := t.schedule.AppointmentsOn(ctx, time.Now())
	if err != nil {
		// Degrade: tracking works without regions, the linker's fuzzy
		// fallback still applies at commit time.
		t.logger.Warn("Failed to load appointment schedule", zap.Error(err))
		return nil
	}
	return appts
}

// run is the single-writer pipeline worker.
func (t *Tracker) run(ctx context.Context, events <-chan event) {
	defer t.wg.Done()

	for ev := range events {
		switch ev.kind {
		case evSample:
			// Geofence transitions are derived and handled before the
			// sample advances the segmenter, so a boundary at a known
			// client always wins over the stillness timer.
			for _, tr := range t.monitor.Observe(ev.sample) {
				t.handleTransition(ctx, tr)
			}
			if ended := t.segmenter.Offer(ev.sample); ended != nil {
				t.publish(ctx, ended)
			}
			t.updateStatus()

		case evRefreshRegions:
			t.monitor.SetRegions(ev.regions)
			t.linker.SetAppointments(ev.regions)
			t.updateStatus()

		case evStop:
			if ended := t.segmenter.ForceEnd(time.Now()); ended != nil {
				t.publish(ctx, ended)
			}
			t.segmenter.Reset()
			t.updateStatus()
			return
		}
	}
}

func (t *Tracker) handleTransition(ctx context.Context, tr Transition) {
	t.logger.Info("Geofence transition",
		zap.String("kind", string(tr.Kind)),
		zap.Int64("appointment_id", tr.AppointmentID),
		zap.String("client", tr.ClientName))

	decision := t.linker.OnTransition(tr)
	if decision.ForceBoundary {
		if ended := t.segmenter.ForceEnd(tr.At); ended != nil {
			if decision.ClosingLink != nil {
				ended.LinkedAppointmentID = decision.ClosingLink
			}
			t.publish(ctx, ended)
		}
	}
	if decision.NextCandidate != nil {
		t.segmenter.SetCandidate(decision.NextCandidate)
	}
}

// publish converts an ended segment into a pending-review trip and hands
// it to the sink.
func (t *Tracker) publish(ctx context.Context, ended *EndedTrip) {
	startLat, startLng := ended.Start.Latitude, ended.Start.Longitude
	endLat, endLng := ended.End.Latitude, ended.End.Longitude
	startedAt, endedAt := ended.StartTime, ended.EndTime

	trip := &models.MileageTrip{
		Date:                time.Date(startedAt.Year(), startedAt.Month(), startedAt.Day(), 0, 0, 0, 0, startedAt.Location()),
		StartLatitude:       &startLat,
		StartLongitude:      &startLng,
		EndLatitude:         &endLat,
		EndLongitude:        &endLng,
		Miles:               ended.Miles,
		Purpose:             models.DefaultPurpose,
		AutoTracked:         true,
		ReviewStatus:        models.ReviewStatusPending,
		StartedAt:           &startedAt,
		EndedAt:             &endedAt,
		SyncStatus:          models.SyncStatusPending,
		LinkedAppointmentID: ended.LinkedAppointmentID,
	}
	if trip.LinkedAppointmentID == nil {
		trip.SuggestedAppointmentID = t.linker.SuggestLink(ended)
	}

	// A trip end at a scheduled client's site is named after the client;
	// reverse geocoding fills in the rest.
	trip.StartDisplayName = t.siteDisplayName(ctx, startLat, startLng)
	trip.EndDisplayName = t.siteDisplayName(ctx, endLat, endLng)
	t.resolveDisplayNames(ctx, trip)

	t.sink.Enqueue(ctx, trip)
}

func (t *Tracker) siteDisplayName(ctx context.Context, lat, lng float64) string {
	appt := t.linker.NearSite(lat, lng, t.cfg.GeofenceEnterM)
	if appt == nil {
		return ""
	}
	site, err := t.schedule.ClientSite(ctx, appt.ClientID)
	if err != nil {
		t.logger.Warn("Failed to look up client site", zap.Error(err), zap.Int64("client_id", appt.ClientID))
		return appt.ClientName
	}
	return site.Name
}

func (t *Tracker) resolveDisplayNames(ctx context.Context, trip *models.MileageTrip) {
	if t.geocoder == nil || !t.geocoder.IsConfigured() {
		return
	}
	geocodeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if addr, err := t.geocoder.ReverseGeocode(geocodeCtx, *trip.StartLatitude, *trip.StartLongitude); err != nil {
		t.logger.Warn("Failed to geocode trip start", zap.Error(err))
	} else {
		trip.StartAddress = addr
		if trip.StartDisplayName == "" {
			trip.StartDisplayName = addr.FormattedAddress
		}
	}
	if addr, err := t.geocoder.ReverseGeocode(geocodeCtx, *trip.EndLatitude, *trip.EndLongitude); err != nil {
		t.logger.Warn("Failed to geocode trip end", zap.Error(err))
	} else {
		trip.EndAddress = addr
		if trip.EndDisplayName == "" {
			trip.EndDisplayName = addr.FormattedAddress
		}
	}
}

func (t *Tracker) updateStatus() {
	current := t.segmenter.Current()

	t.mu.Lock()
	t.status.RegionCount = t.monitor.RegionCount()
	t.status.TripInProgress = current != nil
	if current != nil {
		t.status.TripMiles = current.AccumulatedMiles
		started := current.StartTime
		t.status.TripStartedAt = &started
	} else {
		t.status.TripMiles = 0
		t.status.TripStartedAt = nil
	}
	t.mu.Unlock()
}
