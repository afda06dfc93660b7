package models

import (
	"testing"
	"time"
)

func TestWindowContains(t *testing.T) {
	settings := DefaultAutoTrackingSettings()
	settings.Enabled = true

	// 2026-03-04 is a Wednesday, 2026-03-07 a Saturday.
	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"weekday mid-morning", time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC), true},
		{"weekday window start", time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC), true},
		{"weekday before window", time.Date(2026, 3, 4, 6, 59, 0, 0, time.UTC), false},
		{"weekday window end is exclusive", time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC), false},
		{"saturday inside hours", time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC), false},
		{"sunday inside hours", time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := settings.WindowContains(tt.at); got != tt.want {
				t.Fatalf("WindowContains(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}

	settings.Enabled = false
	if settings.WindowContains(time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("disabled settings reported an active window")
	}
}

func TestDefaultSettingsDaysMask(t *testing.T) {
	settings := DefaultAutoTrackingSettings()
	if settings.Enabled {
		t.Fatalf("tracking enabled before the user opted in")
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		want := d >= time.Monday && d <= time.Friday
		if got := settings.ActiveOn(d); got != want {
			t.Fatalf("ActiveOn(%v) = %v, want %v", d, got, want)
		}
	}
}
