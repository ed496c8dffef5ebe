// Package sqlite persists step records in an on-device SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"example.com/steptracker/internal/domain"
)

// Store implements domain.RecordStore on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway database.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS step_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		count_since_reboot INTEGER NOT NULL,
		timestamp INTEGER NOT NULL,
		step_count INTEGER NOT NULL CHECK (step_count >= 0)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// LatestRecord implements domain.RecordStore.
func (s *Store) LatestRecord(ctx context.Context) (*domain.StepRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT count_since_reboot, timestamp, step_count FROM step_records ORDER BY id DESC LIMIT 1",
	)

	var (
		record domain.StepRecord
		millis int64
	)
	if err := row.Scan(&record.CountSinceReboot, &millis, &record.StepCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest record: %w", err)
	}
	record.Timestamp = time.UnixMilli(millis)
	return &record, nil
}

// InsertRecord implements domain.RecordStore.
func (s *Store) InsertRecord(ctx context.Context, record domain.StepRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO step_records (count_since_reboot, timestamp, step_count) VALUES (?, ?, ?)",
		record.CountSinceReboot, record.Timestamp.UnixMilli(), record.StepCount,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
