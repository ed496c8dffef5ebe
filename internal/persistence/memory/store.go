// Package memory provides a process-local RecordStore for development and tests.
package memory

import (
	"context"
	"sync"

	"example.com/steptracker/internal/domain"
)

// Store keeps step records in memory. Records are lost on restart.
type Store struct {
	mu      sync.RWMutex
	records []domain.StepRecord
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{}
}

// LatestRecord implements domain.RecordStore.
func (s *Store) LatestRecord(ctx context.Context) (*domain.StepRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil, nil
	}
	latest := s.records[len(s.records)-1]
	return &latest, nil
}

// InsertRecord implements domain.RecordStore.
func (s *Store) InsertRecord(ctx context.Context, record domain.StepRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of every stored record in insertion order.
func (s *Store) Records() []domain.StepRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.StepRecord(nil), s.records...)
}
