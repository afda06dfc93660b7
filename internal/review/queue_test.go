package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"go.uber.org/zap"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/repository"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Broadcast(msgType string, data any) {
	n.mu.Lock()
	n.events = append(n.events, msgType)
	n.mu.Unlock()
}

func (n *fakeNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type fakeAppointments struct {
	appointments map[int64]*models.Appointment
}

func (f *fakeAppointments) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	if appt, ok := f.appointments[id]; ok {
		return appt, nil
	}
	return nil, repository.ErrAppointmentNotFound
}

func reviewConfig() *config.Config {
	return &config.Config{
		ReviewWindow: 24 * time.Hour,
		CommitRetry:  time.Hour,
	}
}

func newTestQueue(t *testing.T) (*Queue, pgxmock.PgxPoolIface, *fakeNotifier, *fakeAppointments) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	trips := repository.NewTripRepository(mock, 5*time.Second)
	notifier := &fakeNotifier{}
	appts := &fakeAppointments{appointments: map[int64]*models.Appointment{}}
	q := NewQueue(reviewConfig(), zap.NewNop(), trips, appts, notifier)
	return q, mock, notifier, appts
}

var tripColumns = []string{
	"id", "date", "start_latitude", "start_longitude", "end_latitude", "end_longitude",
	"start_address", "end_address", "start_display_name", "end_display_name",
	"miles", "purpose", "notes", "auto_tracked", "review_status",
	"linked_appointment_id", "suggested_appointment_id", "started_at", "ended_at",
	"sync_status", "deleted_at", "created_at", "updated_at",
}

// anyInsertArgs matches the 20 bound parameters of the trip INSERT without
// pinning their values; pgxmock requires the argument count to be declared.
func anyInsertArgs() []any {
	args := make([]any, 20)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func tripRow(trip *models.MileageTrip) *pgxmock.Rows {
	return pgxmock.NewRows(tripColumns).AddRow(
		trip.ID, trip.Date,
		trip.StartLatitude, trip.StartLongitude, trip.EndLatitude, trip.EndLongitude,
		trip.StartAddress, trip.EndAddress,
		trip.StartDisplayName, trip.EndDisplayName,
		trip.Miles, trip.Purpose, trip.Notes, trip.AutoTracked, trip.ReviewStatus,
		trip.LinkedAppointmentID, trip.SuggestedAppointmentID,
		trip.StartedAt, trip.EndedAt,
		trip.SyncStatus, trip.DeletedAt, trip.CreatedAt, trip.UpdatedAt,
	)
}

func pendingTrip(id string, endedAt time.Time) *models.MileageTrip {
	return &models.MileageTrip{
		ID:           id,
		Date:         endedAt.Truncate(24 * time.Hour),
		Miles:        12.4,
		Purpose:      models.DefaultPurpose,
		AutoTracked:  true,
		ReviewStatus: models.ReviewStatusPending,
		EndedAt:      &endedAt,
		SyncStatus:   models.SyncStatusPending,
		CreatedAt:    endedAt,
		UpdatedAt:    endedAt,
	}
}

func TestEnqueueNotifiesAndArmsTimer(t *testing.T) {
	q, mock, notifier, _ := newTestQueue(t)
	endedAt := time.Now().Add(-time.Hour)
	trip := pendingTrip("", endedAt)

	mock.ExpectQuery(`INSERT INTO trips`).
		WithArgs(anyInsertArgs()...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).
			AddRow(time.Now(), time.Now()))

	q.Enqueue(context.Background(), trip)

	if trip.ID == "" {
		t.Fatalf("trip id not minted on enqueue")
	}
	if got := notifier.types(); len(got) != 1 || got[0] != "trip_recorded" {
		t.Fatalf("broadcasts = %v, want [trip_recorded]", got)
	}
	q.mu.Lock()
	_, armed := q.timers[trip.ID]
	q.mu.Unlock()
	if !armed {
		t.Fatalf("auto-commit timer not armed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnqueuePersistFailureBroadcastsRetry(t *testing.T) {
	q, mock, notifier, _ := newTestQueue(t)
	trip := pendingTrip("", time.Now().Add(-time.Hour))

	mock.ExpectQuery(`INSERT INTO trips`).
		WithArgs(anyInsertArgs()...).
		WillReturnError(errors.New("connection refused"))

	q.Enqueue(context.Background(), trip)

	if got := notifier.types(); len(got) != 1 || got[0] != "trip_save_retry" {
		t.Fatalf("broadcasts = %v, want [trip_save_retry]", got)
	}
}

func TestEnqueueDropsInvalidTripWithoutRetry(t *testing.T) {
	q, mock, notifier, _ := newTestQueue(t)
	q.cfg.CommitRetry = 20 * time.Millisecond

	trip := pendingTrip("", time.Now().Add(-time.Hour))
	trip.Miles = 1008.76

	q.Enqueue(context.Background(), trip)

	// Validation can never start passing, so no retry may be scheduled;
	// a retry would re-run Create and fail the mock's expectations.
	time.Sleep(100 * time.Millisecond)
	if got := notifier.types(); len(got) != 0 {
		t.Fatalf("broadcasts = %v, want none for an invalid trip", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfirmAppliesEditsAndSuggestion(t *testing.T) {
	q, mock, _, _ := newTestQueue(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	trip := pendingTrip("trip-1", now.Add(-2*time.Hour))
	suggested := int64(9)
	trip.SuggestedAppointmentID = &suggested

	mock.ExpectQuery(`SELECT id, date`).
		WithArgs("trip-1").
		WillReturnRows(tripRow(trip))
	mock.ExpectExec(`UPDATE trips`).
		WithArgs(15.0, "Supply run", "", &suggested, "trip-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	confirmed, err := q.Confirm(context.Background(), "trip-1", ConfirmInput{
		Miles:           15.0,
		Purpose:         "Supply run",
		ApplySuggestion: true,
	})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.ReviewStatus != models.ReviewStatusConfirmed {
		t.Fatalf("status = %s, want confirmed", confirmed.ReviewStatus)
	}
	if confirmed.LinkedAppointmentID == nil || *confirmed.LinkedAppointmentID != 9 {
		t.Fatalf("suggestion not applied: %v", confirmed.LinkedAppointmentID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfirmRejectsNonPendingTrip(t *testing.T) {
	q, mock, _, _ := newTestQueue(t)
	now := time.Now()
	trip := pendingTrip("trip-1", now.Add(-2*time.Hour))
	trip.ReviewStatus = models.ReviewStatusAutoCommitted

	mock.ExpectQuery(`SELECT id, date`).
		WithArgs("trip-1").
		WillReturnRows(tripRow(trip))

	if _, err := q.Confirm(context.Background(), "trip-1", ConfirmInput{}); !errors.Is(err, repository.ErrNotPending) {
		t.Fatalf("err = %v, want ErrNotPending", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConfirmRejectsInvalidEdits(t *testing.T) {
	q, mock, _, _ := newTestQueue(t)
	now := time.Now()
	trip := pendingTrip("trip-1", now.Add(-2*time.Hour))

	mock.ExpectQuery(`SELECT id, date`).
		WithArgs("trip-1").
		WillReturnRows(tripRow(trip))

	_, err := q.Confirm(context.Background(), "trip-1", ConfirmInput{Miles: 1200})
	if !errors.Is(err, models.ErrMilesOutOfRange) {
		t.Fatalf("err = %v, want ErrMilesOutOfRange", err)
	}
}

func TestAutoCommitIsExactlyOnce(t *testing.T) {
	q, mock, notifier, _ := newTestQueue(t)
	now := time.Now()
	trip := pendingTrip("trip-1", now.Add(-25*time.Hour))

	mock.ExpectQuery(`SELECT id, date`).
		WithArgs("trip-1").
		WillReturnRows(tripRow(trip))
	mock.ExpectExec(`UPDATE trips`).
		WithArgs((*int64)(nil), "trip-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	q.AutoCommit(context.Background(), "trip-1")

	// The timer firing again after the transition is a no-op.
	committed := pendingTrip("trip-1", now.Add(-25*time.Hour))
	committed.ReviewStatus = models.ReviewStatusAutoCommitted
	mock.ExpectQuery(`SELECT id, date`).
		WithArgs("trip-1").
		WillReturnRows(tripRow(committed))

	q.AutoCommit(context.Background(), "trip-1")

	// No notification accompanies an auto-commit.
	if got := notifier.types(); len(got) != 0 {
		t.Fatalf("broadcasts = %v, want none", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAutoCommitNullsDeletedAppointmentLink(t *testing.T) {
	q, mock, _, appts := newTestQueue(t)
	now := time.Now()
	trip := pendingTrip("trip-1", now.Add(-25*time.Hour))
	gone := int64(4)
	trip.LinkedAppointmentID = &gone
	// The appointment was deleted after the trip was queued.
	delete(appts.appointments, gone)

	mock.ExpectQuery(`SELECT id, date`).
		WithArgs("trip-1").
		WillReturnRows(tripRow(trip))
	mock.ExpectExec(`UPDATE trips`).
		WithArgs((*int64)(nil), "trip-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	q.AutoCommit(context.Background(), "trip-1")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAutoCommitKeepsVerifiedLink(t *testing.T) {
	q, mock, _, appts := newTestQueue(t)
	now := time.Now()
	trip := pendingTrip("trip-1", now.Add(-25*time.Hour))
	link := int64(4)
	trip.LinkedAppointmentID = &link
	appts.appointments[link] = &models.Appointment{ID: link, Status: models.AppointmentCompleted}

	mock.ExpectQuery(`SELECT id, date`).
		WithArgs("trip-1").
		WillReturnRows(tripRow(trip))
	mock.ExpectExec(`UPDATE trips`).
		WithArgs(&link, "trip-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	q.AutoCommit(context.Background(), "trip-1")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDiscardRemovesPendingTrip(t *testing.T) {
	q, mock, _, _ := newTestQueue(t)

	mock.ExpectExec(`DELETE FROM trips`).
		WithArgs("trip-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := q.Discard(context.Background(), "trip-1"); err != nil {
		t.Fatalf("discard: %v", err)
	}

	mock.ExpectExec(`DELETE FROM trips`).
		WithArgs("trip-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	if err := q.Discard(context.Background(), "trip-2"); !errors.Is(err, repository.ErrNotPending) {
		t.Fatalf("err = %v, want ErrNotPending", err)
	}
}

func TestRearmLoadsPersistedPendingTrips(t *testing.T) {
	q, mock, _, _ := newTestQueue(t)
	endedAt := time.Now().Add(-time.Hour)
	a := pendingTrip("trip-a", endedAt)
	b := pendingTrip("trip-b", endedAt.Add(10*time.Minute))

	rows := tripRow(a)
	rows.AddRow(
		b.ID, b.Date,
		b.StartLatitude, b.StartLongitude, b.EndLatitude, b.EndLongitude,
		b.StartAddress, b.EndAddress,
		b.StartDisplayName, b.EndDisplayName,
		b.Miles, b.Purpose, b.Notes, b.AutoTracked, b.ReviewStatus,
		b.LinkedAppointmentID, b.SuggestedAppointmentID,
		b.StartedAt, b.EndedAt,
		b.SyncStatus, b.DeletedAt, b.CreatedAt, b.UpdatedAt,
	)
	mock.ExpectQuery(`SELECT id, date`).WillReturnRows(rows)

	if err := q.Rearm(context.Background()); err != nil {
		t.Fatalf("rearm: %v", err)
	}

	q.mu.Lock()
	armed := len(q.timers)
	q.mu.Unlock()
	if armed != 2 {
		t.Fatalf("timers armed = %d, want 2", armed)
	}
}
