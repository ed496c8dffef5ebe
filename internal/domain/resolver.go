package domain

import "time"

// Resolve computes the steps attributed to the calendar day of now.
//
// latest is the most recent persisted snapshot (nil if none), raw is the current
// count-since-reboot, boot is the wall time the device booted. Calendar days are
// compared in loc; a nil loc means time.Local.
func Resolve(latest *StepRecord, raw int64, boot, now time.Time, loc *time.Location) int64 {
	if loc == nil {
		loc = time.Local
	}

	if latest == nil || !SameDay(latest.Timestamp, now, loc) {
		if SameDay(boot, now, loc) {
			return clamp(raw)
		}
		// Booted on an earlier day: the part of raw that belongs to today is unknown.
		return 0
	}

	if boot.After(latest.Timestamp) {
		// The counter restarted at boot, so raw is entirely post-snapshot.
		return clamp(raw + latest.StepCount)
	}
	return clamp(latest.StepCount + raw - latest.CountSinceReboot)
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
