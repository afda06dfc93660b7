package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
)

func TestSummarizeAppliesPerYearRates(t *testing.T) {
	mock := newMockPool(t)
	cfg := &config.Config{
		MileageRates:       map[int]float64{2024: 0.67, 2025: 0.70},
		DefaultMileageRate: 0.70,
	}
	repo := NewSummaryRepository(mock, cfg)

	start := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT EXTRACT\(YEAR FROM date\)`).
		WithArgs(start, end).
		WillReturnRows(pgxmock.NewRows([]string{"year", "miles", "count"}).
			AddRow(2024, 100.0, int64(5)).
			AddRow(2025, 50.0, int64(2)))

	summary, err := repo.Summarize(context.Background(), start, end)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.TotalMiles != 150 {
		t.Fatalf("total miles = %v, want 150", summary.TotalMiles)
	}
	if summary.TripCount != 7 {
		t.Fatalf("trip count = %d, want 7", summary.TripCount)
	}
	// A range crossing the year boundary applies each year's own rate.
	want := 100*0.67 + 50*0.70
	if math.Abs(summary.EstimatedDeduction-want) > 1e-9 {
		t.Fatalf("deduction = %v, want %v", summary.EstimatedDeduction, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSummarizeEmptyRange(t *testing.T) {
	mock := newMockPool(t)
	repo := NewSummaryRepository(mock, &config.Config{DefaultMileageRate: 0.70})

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT EXTRACT\(YEAR FROM date\)`).
		WithArgs(start, end).
		WillReturnRows(pgxmock.NewRows([]string{"year", "miles", "count"}))

	summary, err := repo.Summarize(context.Background(), start, end)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.TotalMiles != 0 || summary.TripCount != 0 || summary.EstimatedDeduction != 0 {
		t.Fatalf("empty range produced totals: %+v", summary)
	}
}
