// Package domain defines the step-tracking model and the day-boundary arithmetic.
package domain

import (
	"context"
	"errors"
)

var (
	// ErrRecordLookupFailed wraps failures reading the latest snapshot from the store.
	ErrRecordLookupFailed = errors.New("latest step record lookup failed")
	// ErrNegativeStepCount is returned when a record violates the non-negative invariant.
	ErrNegativeStepCount = errors.New("step record has negative step count")
)

// RecordStore captures persistence operations for step snapshots. Rows form an
// append-only log; only the most recent one is consulted.
type RecordStore interface {
	// LatestRecord returns the most recently inserted record, or nil when the store is empty.
	LatestRecord(ctx context.Context) (*StepRecord, error)
	InsertRecord(ctx context.Context, record StepRecord) error
}

// Validate checks the invariants a record must satisfy before it is written.
func (r StepRecord) Validate() error {
	if r.StepCount < 0 {
		return ErrNegativeStepCount
	}
	return nil
}
