package models

import "time"

// LocationSample is a single position fix pushed by the device. Samples are
// ephemeral: they drive segmentation and geofence evaluation but are never
// persisted individually.
type LocationSample struct {
	RecordedAt time.Time `json:"recorded_at"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	AccuracyM  float64   `json:"accuracy_m"`
	SpeedMps   *float64  `json:"speed_mps,omitempty"`
	BatteryPct *int      `json:"battery_pct,omitempty"`
}
