package repository

import (
	"context"
	"fmt"
	"time"
)

// Summary is the read-side aggregate over committed trips.
type Summary struct {
	Start              time.Time `json:"start"`
	End                time.Time `json:"end"`
	TotalMiles         float64   `json:"total_miles"`
	TripCount          int64     `json:"trip_count"`
	EstimatedDeduction float64   `json:"estimated_deduction"`
}

// RateProvider supplies the per-mile deduction rate for a calendar year.
type RateProvider interface {
	RateForYear(year int) float64
}

// SummaryRepository computes period totals and deduction estimates. Pure
// read path; it never feeds back into the tracking pipeline.
type SummaryRepository struct {
	db    Querier
	rates RateProvider
}

// NewSummaryRepository creates the summary repository.
func NewSummaryRepository(db Querier, rates RateProvider) *SummaryRepository {
	return &SummaryRepository{db: db, rates: rates}
}

// Summarize totals committed, non-deleted trips in [start, end]. Deduction
// is computed per calendar year so rate changes across a year boundary are
// honored.
func (r *SummaryRepository) Summarize(ctx context.Context, start, end time.Time) (*Summary, error) {
	query := `
		SELECT EXTRACT(YEAR FROM date)::int, COALESCE(SUM(miles), 0), COUNT(*)
		FROM trips
		WHERE date >= $1 AND date <= $2
		  AND deleted_at IS NULL
		  AND review_status <> 'pending_review'
		GROUP BY 1
	`
	rows, err := r.db.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("summarize trips: %w", err)
	}
	defer rows.Close()

	summary := &Summary{Start: start, End: end}
	for rows.Next() {
		var year int
		var miles float64
		var count int64
		if err := rows.Scan(&year, &miles, &count); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		summary.TotalMiles += miles
		summary.TripCount += count
		summary.EstimatedDeduction += miles * r.rates.RateForYear(year)
	}
	return summary, rows.Err()
}
