package domain

import "time"

// StepRecord is a persisted snapshot of the tracker used to resume state after a restart.
type StepRecord struct {
	CountSinceReboot int64
	Timestamp        time.Time
	StepCount        int64
}
