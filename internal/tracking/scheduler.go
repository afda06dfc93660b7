package tracking

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// Pipeline is the surface the scheduler drives. *Tracker implements it.
type Pipeline interface {
	Start(ctx context.Context) error
	Stop(reason StopReason)
	Running() bool
	RefreshRegions(ctx context.Context)
}

// SettingsStore reads and disables AutoTrackingSettings. The scheduler
// re-reads on every evaluation so concurrent user updates apply at the
// next boundary, never mid-sample.
type SettingsStore interface {
	Get(ctx context.Context) (models.AutoTrackingSettings, error)
	Disable(ctx context.Context) error
}

// PermissionSource reports the current location permission grant.
type PermissionSource func() bool

// Scheduler gates the pipeline to the configured working hours and days.
// Evaluations fire on a periodic tick, on settings changes, and on day
// rollover.
type Scheduler struct {
	cfg        *config.Config
	logger     *zap.Logger
	settings   SettingsStore
	pipeline   Pipeline
	permission PermissionSource

	kick    chan struct{}
	lastDay int
	now     func() time.Time
}

// NewScheduler creates the window scheduler.
func NewScheduler(
	cfg *config.Config,
	logger *zap.Logger,
	settings SettingsStore,
	pipeline Pipeline,
	permission PermissionSource,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		logger:     logger,
		settings:   settings,
		pipeline:   pipeline,
		permission: permission,
		kick:       make(chan struct{}, 1),
		now:        time.Now,
	}
}

// SettingsChanged requests an immediate re-evaluation.
func (s *Scheduler) SettingsChanged() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run evaluates the window until the context is cancelled, then stops the
// pipeline so any trip in progress is flushed.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.EvaluateInterval)
	defer ticker.Stop()

	s.Evaluate(ctx)
	for {
		select {
		case <-ctx.Done():
			s.pipeline.Stop(StopScheduled)
			return
		case <-ticker.C:
			s.Evaluate(ctx)
		case <-s.kick:
			s.Evaluate(ctx)
		}
	}
}

// Evaluate starts or stops the pipeline according to "now" and the current
// settings.
func (s *Scheduler) Evaluate(ctx context.Context) {
	now := s.now()

	settings, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Error("Failed to load tracking settings", zap.Error(err))
		return
	}

	// Permission revoked mid-session: stop, disable the setting, and
	// surface the state. No retry loop.
	if settings.Enabled && !s.permission() {
		if s.pipeline.Running() {
			s.pipeline.Stop(StopPermission)
		}
		if err := s.settings.Disable(ctx); err != nil {
			s.logger.Error("Failed to disable tracking after permission loss", zap.Error(err))
		}
		s.logger.Warn("Location permission revoked, auto tracking disabled")
		return
	}

	active := settings.WindowContains(now)
	switch {
	case active && !s.pipeline.Running():
		if err := s.pipeline.Start(ctx); err != nil {
			s.logger.Error("Failed to start tracking pipeline", zap.Error(err))
		}
	case !active && s.pipeline.Running():
		s.pipeline.Stop(StopScheduled)
	}

	// Day rollover invalidates yesterday's geofence regions.
	if day := now.YearDay(); day != s.lastDay {
		s.lastDay = day
		if s.pipeline.Running() {
			s.pipeline.RefreshRegions(ctx)
		}
	}
}
