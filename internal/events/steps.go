// Package events defines the payloads pushed to remote step-update subscribers.
package events

import "time"

// StepCountUpdated is emitted once per accepted step counter reading.
type StepCountUpdated struct {
	EventID    string    `json:"event_id"`
	StepCount  int64     `json:"step_count"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version"`
}

// SchemaVersion is stamped into every StepCountUpdated payload.
const SchemaVersion = "1"

// StepCount is the response body of the step count query.
type StepCount struct {
	StepCount   int64 `json:"step_count"`
	Initialized bool  `json:"initialized"`
}
