package models

import "time"

// AutoTrackingSettings gates the tracking pipeline to configured working
// hours. The scheduler re-reads it on every evaluation, so a concurrent
// update from the user applies at the next evaluation boundary.
type AutoTrackingSettings struct {
	Enabled     bool `json:"enabled" db:"enabled"`
	StartMinute int  `json:"start_minute" db:"start_minute"` // minutes after midnight
	EndMinute   int  `json:"end_minute" db:"end_minute"`
	DaysMask    int  `json:"days_mask" db:"days_mask"` // bit per time.Weekday, Sunday = bit 0
}

// ActiveOn reports whether the weekday is part of the tracking window.
func (s AutoTrackingSettings) ActiveOn(day time.Weekday) bool {
	return s.DaysMask&(1<<uint(day)) != 0
}

// WindowContains reports whether the local time of day falls inside the
// configured window on an active day.
func (s AutoTrackingSettings) WindowContains(t time.Time) bool {
	if !s.Enabled || !s.ActiveOn(t.Weekday()) {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= s.StartMinute && minute < s.EndMinute
}

// DefaultAutoTrackingSettings is Mon-Fri 07:00-18:00, disabled until the
// user opts in.
func DefaultAutoTrackingSettings() AutoTrackingSettings {
	mask := 0
	for d := time.Monday; d <= time.Friday; d++ {
		mask |= 1 << uint(d)
	}
	return AutoTrackingSettings{
		Enabled:     false,
		StartMinute: 7 * 60,
		EndMinute:   18 * 60,
		DaysMask:    mask,
	}
}
