package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

// AppointmentRepository serves the read-only schedule lookups the engine
// consumes: same-day appointments for geofencing/linking and client sites
// for display names.
type AppointmentRepository struct {
	db Querier
}

// NewAppointmentRepository creates the appointment repository.
func NewAppointmentRepository(db Querier) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// AppointmentsOn returns all appointments scheduled on the given calendar
// date, joined with the client's geocoded site.
func (r *AppointmentRepository) AppointmentsOn(ctx context.Context, date time.Time) ([]models.Appointment, error) {
	query := `
		SELECT a.id, a.client_id, c.name, c.latitude, c.longitude, COALESCE(c.address, ''), a.scheduled_at, a.status
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.scheduled_at >= $1 AND a.scheduled_at < $2
		ORDER BY a.scheduled_at ASC
	`
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	rows, err := r.db.Query(ctx, query, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		var a models.Appointment
		if err := rows.Scan(&a.ID, &a.ClientID, &a.ClientName, &a.Latitude, &a.Longitude, &a.Address, &a.ScheduledAt, &a.Status); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, rows.Err()
}

// GetByID returns a single appointment, used to re-check a link target at
// auto-commit time.
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `
		SELECT a.id, a.client_id, c.name, c.latitude, c.longitude, COALESCE(c.address, ''), a.scheduled_at, a.status
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.id = $1
	`
	var a models.Appointment
	err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.ClientID, &a.ClientName, &a.Latitude, &a.Longitude, &a.Address, &a.ScheduledAt, &a.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return &a, nil
}

// ClientSite returns the client's geocoded address.
func (r *AppointmentRepository) ClientSite(ctx context.Context, clientID int64) (*models.ClientSite, error) {
	var s models.ClientSite
	err := r.db.QueryRow(ctx, `
		SELECT id, name, COALESCE(address, ''), COALESCE(latitude, 0), COALESCE(longitude, 0)
		FROM clients WHERE id = $1
	`, clientID).Scan(&s.ClientID, &s.Name, &s.Address, &s.Latitude, &s.Longitude)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("get client site: %w", err)
	}
	return &s, nil
}
