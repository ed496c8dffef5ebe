// Package postgres provides a Postgres-backed step record store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"example.com/steptracker/internal/domain"
)

// Querier is the subset of pgx used by the repository.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `CREATE TABLE IF NOT EXISTS step_records (
        record_id          BIGSERIAL PRIMARY KEY,
        count_since_reboot BIGINT NOT NULL,
        recorded_at_ms     BIGINT NOT NULL,
        step_count         BIGINT NOT NULL CHECK (step_count >= 0)
    )`

// Repository stores step snapshots in the step_records table.
type Repository struct {
	db Querier
}

// NewRepository constructs a Repository.
func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the step_records table if it does not exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create step_records: %w", err)
	}
	return nil
}

// LatestRecord returns the most recently inserted snapshot or nil when none exist.
func (r *Repository) LatestRecord(ctx context.Context) (*domain.StepRecord, error) {
	const query = `SELECT count_since_reboot, recorded_at_ms, step_count
        FROM step_records
        ORDER BY record_id DESC
        LIMIT 1`

	var (
		record domain.StepRecord
		millis int64
	)
	if err := r.db.QueryRow(ctx, query).Scan(&record.CountSinceReboot, &millis, &record.StepCount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	record.Timestamp = time.UnixMilli(millis)
	return &record, nil
}

// InsertRecord appends a snapshot.
func (r *Repository) InsertRecord(ctx context.Context, record domain.StepRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	const stmt = `INSERT INTO step_records (count_since_reboot, recorded_at_ms, step_count)
        VALUES ($1,$2,$3)`

	_, err := r.db.Exec(ctx, stmt, record.CountSinceReboot, record.Timestamp.UnixMilli(), record.StepCount)
	return err
}
