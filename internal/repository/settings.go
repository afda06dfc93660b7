package repository

import (
	"context"
	"fmt"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// SettingsRepository holds the single process-wide AutoTrackingSettings row.
type SettingsRepository struct {
	db Querier
}

// NewSettingsRepository creates the settings repository.
func NewSettingsRepository(db Querier) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get reads the current settings. The scheduler calls this on every window
// evaluation so user updates apply at the next boundary.
func (r *SettingsRepository) Get(ctx context.Context) (models.AutoTrackingSettings, error) {
	var s models.AutoTrackingSettings
	err := r.db.QueryRow(ctx, `
		SELECT enabled, start_minute, end_minute, days_mask
		FROM auto_tracking_settings WHERE id = 1
	`).Scan(&s.Enabled, &s.StartMinute, &s.EndMinute, &s.DaysMask)
	if err != nil {
		return models.DefaultAutoTrackingSettings(), fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// Put replaces the settings row.
func (r *SettingsRepository) Put(ctx context.Context, s models.AutoTrackingSettings) error {
	_, err := r.db.Exec(ctx, `
		UPDATE auto_tracking_settings
		SET enabled = $1, start_minute = $2, end_minute = $3, days_mask = $4, updated_at = NOW()
		WHERE id = 1
	`, s.Enabled, s.StartMinute, s.EndMinute, s.DaysMask)
	if err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	return nil
}

// Disable turns auto tracking off, used when location permission is revoked
// mid-session.
func (r *SettingsRepository) Disable(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		UPDATE auto_tracking_settings SET enabled = false, updated_at = NOW() WHERE id = 1
	`)
	if err != nil {
		return fmt.Errorf("disable settings: %w", err)
	}
	return nil
}
