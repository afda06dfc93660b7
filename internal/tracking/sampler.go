package tracking

import (
	"time"

	"github.com/salbaldovinos/hoofdirect-sub001/internal/config"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/geo"
	"github.com/salbaldovinos/hoofdirect-sub001/internal/models"
)

// Accuracy levels the device is asked to sample at.
const (
	AccuracyHigh     = "high"
	AccuracyBalanced = "balanced"
	AccuracyLow      = "low"
)

// SamplingProfile is returned to the device on every ingest: the interval
// and accuracy it should use for the next batch.
type SamplingProfile struct {
	Interval        time.Duration `json:"-"`
	IntervalSeconds int           `json:"interval_seconds"`
	Accuracy        string        `json:"accuracy"`
}

// NextProfile derives the sampling profile from recent history and battery
// level. Pure function, re-evaluated on every sample batch: stationary
// devices get a relaxed cadence, low battery relaxes it further, and any
// displacement snaps back to high frequency.
func NextProfile(cfg *config.Config, recent []models.LocationSample, batteryPct *int) SamplingProfile {
	profile := SamplingProfile{Interval: cfg.SampleIntervalHigh, Accuracy: AccuracyHigh}

	if stationary(cfg, recent) {
		profile = SamplingProfile{Interval: cfg.SampleIntervalRelaxed, Accuracy: AccuracyBalanced}
		if batteryPct != nil && *batteryPct <= cfg.LowBatteryPct {
			profile = SamplingProfile{Interval: cfg.SampleIntervalLow, Accuracy: AccuracyLow}
		}
	}

	profile.IntervalSeconds = int(profile.Interval / time.Second)
	return profile
}

// stationary reports whether the recent samples all stay within the
// stillness radius of the oldest one.
func stationary(cfg *config.Config, recent []models.LocationSample) bool {
	if len(recent) < 2 {
		return false
	}
	anchor := recent[0]
	for _, s := range recent[1:] {
		if geo.DistanceMeters(anchor.Latitude, anchor.Longitude, s.Latitude, s.Longitude) > cfg.StillRadiusM {
			return false
		}
	}
	return true
}
