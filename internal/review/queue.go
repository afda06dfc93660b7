package review

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/repository"
)

// Notifier is the fire-and-forget notification sink ("trip recorded: N
// miles, review?"). The ws hub is the production implementation.
type Notifier interface {
	Broadcast(msgType string, data any)
}

// AppointmentChecker re-validates a link target at auto-commit time.
type AppointmentChecker interface {
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
}

// ConfirmInput carries the user's edits applied on confirmation. Zero
// values leave the stored field untouched.
type ConfirmInput struct {
	Miles               float64 `json:"miles"`
	Purpose             string  `json:"purpose"`
	Notes               string  `json:"notes"`
	LinkedAppointmentID *int64  `json:"linked_appointment_id"`
	ApplySuggestion     bool    `json:"apply_suggestion"`
}

// Queue holds ended auto-tracked trips pending user confirmation. Trips
// are persisted immediately under pending_review so unreviewed trips
// survive a restart; the auto-commit timer is recomputed from the original
// end time, never restarted.
type Queue struct {
	cfg    *config.Config
	logger *zap.Logger
	trips  *repository.TripRepository
	appts  AppointmentChecker
	hub    Notifier

	mu     sync.Mutex
	timers map[string]*time.Timer
	now    func() time.Time
}

// NewQueue creates the review queue.
func NewQueue(
	cfg *config.Config,
	logger *zap.Logger,
	trips *repository.TripRepository,
	appts AppointmentChecker,
	hub Notifier,
) *Queue {
	return &Queue{
		cfg:    cfg,
		logger: logger,
		trips:  trips,
		appts:  appts,
		hub:    hub,
		timers: make(map[string]*time.Timer),
		now:    time.Now,
	}
}

// Enqueue persists an ended trip as pending review, notifies the user, and
// arms the auto-commit timer. A transient persistence failure keeps the
// trip in memory and retries on a backoff; a trip that fails validation is
// logged and dropped, since retrying can never make it valid.
func (q *Queue) Enqueue(ctx context.Context, trip *models.MileageTrip) {
	if err := q.trips.Create(ctx, trip); err != nil {
		if errors.Is(err, models.ErrMilesOutOfRange) || errors.Is(err, models.ErrFutureDate) {
			q.logger.Error("Rejected invalid auto-tracked trip",
				zap.Error(err),
				zap.Float64("miles", trip.Miles))
			return
		}
		q.logger.Error("Failed to persist ended trip, will retry",
			zap.Error(err),
			zap.Float64("miles", trip.Miles))
		q.hub.Broadcast("trip_save_retry", map[string]any{"miles": trip.Miles})
		time.AfterFunc(q.cfg.CommitRetry, func() {
			q.Enqueue(context.Background(), trip)
		})
		return
	}

	q.logger.Info("Trip queued for review",
		zap.String("trip_id", trip.ID),
		zap.Float64("miles", trip.Miles))
	q.hub.Broadcast("trip_recorded", map[string]any{
		"trip_id": trip.ID,
		"miles":   trip.Miles,
	})
	q.armTimer(trip.ID, trip.EndedAt)
}

// Rearm reloads pending trips after a restart and re-arms their timers
// from the persisted end times. Trips already past the review window
// auto-commit immediately.
func (q *Queue) Rearm(ctx context.Context) error {
	pending, err := q.trips.ListPendingReview(ctx)
	if err != nil {
		return err
	}
	for _, trip := range pending {
		q.armTimer(trip.ID, trip.EndedAt)
	}
	if len(pending) > 0 {
		q.logger.Info("Re-armed review timers", zap.Int("pending", len(pending)))
	}
	return nil
}

// Pending lists trips awaiting review.
func (q *Queue) Pending(ctx context.Context) ([]*models.MileageTrip, error) {
	return q.trips.ListPendingReview(ctx)
}

// Confirm applies the user's edits and moves the trip to confirmed,
// cancelling the auto-commit timer.
func (q *Queue) Confirm(ctx context.Context, id string, input ConfirmInput) (*models.MileageTrip, error) {
	trip, err := q.trips.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	machine := NewMachine(trip.ReviewStatus)
	if !machine.Can(EventConfirm) {
		return nil, repository.ErrNotPending
	}

	if input.Miles > 0 {
		trip.Miles = input.Miles
	}
	if input.Purpose != "" {
		trip.Purpose = input.Purpose
	}
	if input.Notes != "" {
		trip.Notes = input.Notes
	}
	if input.LinkedAppointmentID != nil {
		trip.LinkedAppointmentID = input.LinkedAppointmentID
	} else if input.ApplySuggestion && trip.SuggestedAppointmentID != nil {
		trip.LinkedAppointmentID = trip.SuggestedAppointmentID
	}
	if err := trip.Validate(q.now()); err != nil {
		return nil, err
	}

	if err := q.trips.Confirm(ctx, trip); err != nil {
		return nil, err
	}
	if err := machine.Trigger(EventConfirm); err != nil {
		return nil, err
	}
	trip.ReviewStatus = machine.Current()

	q.cancelTimer(id)
	q.logger.Info("Trip confirmed", zap.String("trip_id", id))
	return trip, nil
}

// Discard drops a trip that is still pending review.
func (q *Queue) Discard(ctx context.Context, id string) error {
	if err := q.trips.Discard(ctx, id); err != nil {
		return err
	}
	q.cancelTimer(id)
	q.logger.Info("Trip discarded", zap.String("trip_id", id))
	return nil
}

func (q *Queue) armTimer(id string, endedAt *time.Time) {
	ended := q.now()
	if endedAt != nil {
		ended = *endedAt
	}
	delay := ended.Add(q.cfg.ReviewWindow).Sub(q.now())
	if delay < 0 {
		delay = 0
	}

	q.mu.Lock()
	if existing, ok := q.timers[id]; ok {
		existing.Stop()
	}
	q.timers[id] = time.AfterFunc(delay, func() {
		q.AutoCommit(context.Background(), id)
	})
	q.mu.Unlock()
}

func (q *Queue) cancelTimer(id string) {
	q.mu.Lock()
	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()
}

// AutoCommit finalizes an unreviewed trip with its defaults. The
// repository's guarded update makes the transition exactly-once even if a
// confirm races the timer. A link whose appointment was deleted in the
// meantime is nulled; linking is not retried.
func (q *Queue) AutoCommit(ctx context.Context, id string) {
	trip, err := q.trips.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrTripNotFound) {
			q.logger.Error("Failed to load trip for auto-commit", zap.Error(err), zap.String("trip_id", id))
			q.retryAutoCommit(id)
		}
		return
	}
	if !NewMachine(trip.ReviewStatus).Can(EventAutoCommit) {
		q.cancelTimer(id)
		return
	}

	link := trip.LinkedAppointmentID
	if link != nil {
		if _, err := q.appts.GetByID(ctx, *link); err != nil {
			if errors.Is(err, repository.ErrAppointmentNotFound) {
				link = nil
			} else {
				q.logger.Warn("Failed to verify linked appointment", zap.Error(err))
			}
		}
	}

	if err := q.trips.AutoCommit(ctx, id, link); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			// Confirmed or discarded while the timer fired.
			q.cancelTimer(id)
			return
		}
		q.logger.Error("Failed to auto-commit trip, will retry", zap.Error(err), zap.String("trip_id", id))
		q.retryAutoCommit(id)
		return
	}

	q.cancelTimer(id)
	// The original "review?" notification is not re-sent on auto-commit.
	q.logger.Info("Trip auto-committed", zap.String("trip_id", id), zap.Float64("miles", trip.Miles))
}

func (q *Queue) retryAutoCommit(id string) {
	q.mu.Lock()
	q.timers[id] = time.AfterFunc(q.cfg.CommitRetry, func() {
		q.AutoCommit(context.Background(), id)
	})
	q.mu.Unlock()
}
