package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

var (
	ErrTripNotFound = errors.New("trip not found")
	ErrUndoExpired  = errors.New("undo window expired")
	ErrNotPending   = errors.New("trip is not pending review")
)

// TripRepository is the durable trip store. Auto-tracked trips pending
// review live in the same table under review_status = 'pending_review';
// range reads and summaries only see committed, non-deleted rows.
type TripRepository struct {
	db         Querier
	undoWindow time.Duration
}

// NewTripRepository creates the trip repository.
func NewTripRepository(db Querier, undoWindow time.Duration) *TripRepository {
	return &TripRepository{db: db, undoWindow: undoWindow}
}

const tripColumns = `id, date, start_latitude, start_longitude, end_latitude, end_longitude,
	start_address, end_address, start_display_name, end_display_name,
	miles, purpose, notes, auto_tracked, review_status,
	linked_appointment_id, suggested_appointment_id, started_at, ended_at,
	sync_status, deleted_at, created_at, updated_at`

func scanTrip(row pgx.Row) (*models.MileageTrip, error) {
	trip := &models.MileageTrip{}
	err := row.Scan(
		&trip.ID,
		&trip.Date,
		&trip.StartLatitude,
		&trip.StartLongitude,
		&trip.EndLatitude,
		&trip.EndLongitude,
		&trip.StartAddress,
		&trip.EndAddress,
		&trip.StartDisplayName,
		&trip.EndDisplayName,
		&trip.Miles,
		&trip.Purpose,
		&trip.Notes,
		&trip.AutoTracked,
		&trip.ReviewStatus,
		&trip.LinkedAppointmentID,
		&trip.SuggestedAppointmentID,
		&trip.StartedAt,
		&trip.EndedAt,
		&trip.SyncStatus,
		&trip.DeletedAt,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return trip, nil
}

// Create validates and inserts a trip. The id is minted here when the
// caller did not supply one (offline clients mint their own).
func (r *TripRepository) Create(ctx context.Context, trip *models.MileageTrip) error {
	if err := trip.Validate(time.Now()); err != nil {
		return err
	}
	if trip.ID == "" {
		trip.ID = uuid.NewString()
	}
	if trip.SyncStatus == "" {
		trip.SyncStatus = models.SyncStatusPending
	}

	query := `
		INSERT INTO trips (id, date, start_latitude, start_longitude, end_latitude, end_longitude,
			start_address, end_address, start_display_name, end_display_name,
			miles, purpose, notes, auto_tracked, review_status,
			linked_appointment_id, suggested_appointment_id, started_at, ended_at, sync_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		trip.ID,
		trip.Date,
		trip.StartLatitude,
		trip.StartLongitude,
		trip.EndLatitude,
		trip.EndLongitude,
		trip.StartAddress,
		trip.EndAddress,
		trip.StartDisplayName,
		trip.EndDisplayName,
		trip.Miles,
		trip.Purpose,
		trip.Notes,
		trip.AutoTracked,
		trip.ReviewStatus,
		trip.LinkedAppointmentID,
		trip.SuggestedAppointmentID,
		trip.StartedAt,
		trip.EndedAt,
		trip.SyncStatus,
	).Scan(&trip.CreatedAt, &trip.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

// Update rewrites the editable fields. Edits are allowed any time after
// commit; every write flips the sync flag back to pending.
func (r *TripRepository) Update(ctx context.Context, trip *models.MileageTrip) error {
	if err := trip.Validate(time.Now()); err != nil {
		return err
	}

	query := `
		UPDATE trips SET
			date = $1,
			miles = $2,
			purpose = $3,
			notes = $4,
			linked_appointment_id = $5,
			start_display_name = $6,
			end_display_name = $7,
			sync_status = 'pending',
			updated_at = NOW()
		WHERE id = $8 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query,
		trip.Date,
		trip.Miles,
		trip.Purpose,
		trip.Notes,
		trip.LinkedAppointmentID,
		trip.StartDisplayName,
		trip.EndDisplayName,
		trip.ID,
	)
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTripNotFound
	}
	return nil
}

// GetByID returns a trip including tombstoned ones (undo needs them).
func (r *TripRepository) GetByID(ctx context.Context, id string) (*models.MileageTrip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`
	trip, err := scanTrip(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("get trip by id: %w", err)
	}
	return trip, nil
}

// ListInRange returns committed, non-deleted trips with date in [start, end].
func (r *TripRepository) ListInRange(ctx context.Context, start, end time.Time) ([]*models.MileageTrip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE date >= $1 AND date <= $2
		  AND deleted_at IS NULL
		  AND review_status <> 'pending_review'
		ORDER BY date DESC, created_at DESC
	`
	return r.list(ctx, query, start, end)
}

// ListPendingReview returns auto-tracked trips awaiting confirmation.
func (r *TripRepository) ListPendingReview(ctx context.Context) ([]*models.MileageTrip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE review_status = 'pending_review' AND deleted_at IS NULL
		ORDER BY ended_at ASC
	`
	return r.list(ctx, query)
}

// ListUnsynced returns trips the offline-first collaborator still has to
// push, tombstones included.
func (r *TripRepository) ListUnsynced(ctx context.Context) ([]*models.MileageTrip, error) {
	query := `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE sync_status = 'pending' AND review_status <> 'pending_review'
		ORDER BY updated_at ASC
	`
	return r.list(ctx, query)
}

func (r *TripRepository) list(ctx context.Context, query string, args ...any) ([]*models.MileageTrip, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.MileageTrip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// SoftDelete tombstones a trip. The record stays in place so sync can
// propagate the deletion and undo can revert it.
func (r *TripRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE trips SET deleted_at = NOW(), sync_status = 'pending', updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("soft delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTripNotFound
	}
	return nil
}

// Undo reverts a recent tombstone. Outside the undo window the deletion
// stands; the row itself is never touched, so all prior fields survive.
func (r *TripRepository) Undo(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE trips SET deleted_at = NULL, sync_status = 'pending', updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NOT NULL AND deleted_at > NOW() - $2::interval
	`, id, r.undoWindow)
	if err != nil {
		return fmt.Errorf("undo delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUndoExpired
	}
	return nil
}

// Confirm moves a pending trip to confirmed with the user's edits applied.
// The WHERE clause makes the transition single-shot against a racing
// auto-commit.
func (r *TripRepository) Confirm(ctx context.Context, trip *models.MileageTrip) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE trips SET
			review_status = 'confirmed',
			miles = $1,
			purpose = $2,
			notes = $3,
			linked_appointment_id = $4,
			sync_status = 'pending',
			updated_at = NOW()
		WHERE id = $5 AND review_status = 'pending_review' AND deleted_at IS NULL
	`, trip.Miles, trip.Purpose, trip.Notes, trip.LinkedAppointmentID, trip.ID)
	if err != nil {
		return fmt.Errorf("confirm trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// AutoCommit finalizes an unreviewed trip with its defaults. Returns
// ErrNotPending when the trip was already confirmed or discarded, which
// makes the transition exactly-once under timer races.
func (r *TripRepository) AutoCommit(ctx context.Context, id string, linkedAppointmentID *int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE trips SET
			review_status = 'auto_committed',
			linked_appointment_id = $1,
			sync_status = 'pending',
			updated_at = NOW()
		WHERE id = $2 AND review_status = 'pending_review' AND deleted_at IS NULL
	`, linkedAppointmentID, id)
	if err != nil {
		return fmt.Errorf("auto commit trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// Discard removes a trip that is still pending review. Committed trips can
// only be soft-deleted.
func (r *TripRepository) Discard(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM trips WHERE id = $1 AND review_status = 'pending_review'
	`, id)
	if err != nil {
		return fmt.Errorf("discard trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

// MarkSynced clears the sync flag after the collaborator acknowledged the
// rows.
func (r *TripRepository) MarkSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		UPDATE trips SET sync_status = 'synced' WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return fmt.Errorf("mark trips synced: %w", err)
	}
	return nil
}
