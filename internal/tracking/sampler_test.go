package tracking

import (
	"testing"
	"time"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

func TestNextProfile(t *testing.T) {
	cfg := testConfig()
	t0 := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

	moving := []models.LocationSample{
		fix(35.00, -101.80, t0),
		fix(35.01, -101.80, t0.Add(10*time.Second)),
	}
	parked := []models.LocationSample{
		fix(35.00, -101.80, t0),
		fix(35.0003, -101.80, t0.Add(time.Minute)),
		fix(35.0005, -101.80, t0.Add(2*time.Minute)),
	}
	lowBattery := 15
	fullBattery := 90

	tests := []struct {
		name     string
		recent   []models.LocationSample
		battery  *int
		interval time.Duration
		accuracy string
	}{
		{"moving", moving, &fullBattery, cfg.SampleIntervalHigh, AccuracyHigh},
		{"moving low battery stays high", moving, &lowBattery, cfg.SampleIntervalHigh, AccuracyHigh},
		{"stationary", parked, &fullBattery, cfg.SampleIntervalRelaxed, AccuracyBalanced},
		{"stationary low battery", parked, &lowBattery, cfg.SampleIntervalLow, AccuracyLow},
		{"stationary no battery report", parked, nil, cfg.SampleIntervalRelaxed, AccuracyBalanced},
		{"single sample counts as moving", moving[:1], &fullBattery, cfg.SampleIntervalHigh, AccuracyHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := NextProfile(cfg, tt.recent, tt.battery)
			if profile.Interval != tt.interval {
				t.Fatalf("interval = %v, want %v", profile.Interval, tt.interval)
			}
			if profile.Accuracy != tt.accuracy {
				t.Fatalf("accuracy = %q, want %q", profile.Accuracy, tt.accuracy)
			}
			if profile.IntervalSeconds != int(tt.interval/time.Second) {
				t.Fatalf("interval_seconds = %d, want %d", profile.IntervalSeconds, int(tt.interval/time.Second))
			}
		})
	}
}
