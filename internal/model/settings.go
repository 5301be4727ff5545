package model

import "time"

// Storage keys of the schedule tunables in site_settings.
const (
	SettingHoldMinutes        = "booking_hold_minutes"
	SettingPendingExpireHours = "booking_pending_expire_hours"
)

// Bounds and defaults of the schedule tunables.
const (
	DefaultHoldMinutes        = 1440
	DefaultPendingExpireHours = 24

	MinHoldMinutes        = 5
	MaxHoldMinutes        = 1440
	MinPendingExpireHours = 0
	MaxPendingExpireHours = 72
)

// ScheduleSettings carries the tunables that shape holds and the pending
// expiry sweep.  It is passed by value into engine operations.
type ScheduleSettings struct {
	HoldMinutes        int `json:"booking_hold_minutes"`
	PendingExpireHours int `json:"booking_pending_expire_hours"`
}

// DefaultScheduleSettings returns the values used when nothing is stored.
func DefaultScheduleSettings() ScheduleSettings {
	return ScheduleSettings{
		HoldMinutes:        DefaultHoldMinutes,
		PendingExpireHours: DefaultPendingExpireHours,
	}
}

// ClampSetting bounds a raw value for the given key.  Unknown keys report
// ok=false.
func ClampSetting(key string, v int) (int, bool) {
	switch key {
	case SettingHoldMinutes:
		return clamp(v, MinHoldMinutes, MaxHoldMinutes), true
	case SettingPendingExpireHours:
		return clamp(v, MinPendingExpireHours, MaxPendingExpireHours), true
	}
	return 0, false
}

// HoldDuration is the default lifetime of a new hold.
func (s ScheduleSettings) HoldDuration() time.Duration {
	return time.Duration(s.HoldMinutes) * time.Minute
}

// PendingWindow is how long a booking may stay pending; zero disables expiry.
func (s ScheduleSettings) PendingWindow() time.Duration {
	if s.PendingExpireHours <= 0 {
		return 0
	}
	return time.Duration(s.PendingExpireHours) * time.Hour
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
