//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/steptracker/internal/domain"
)

func TestRepositoryReturnsLatestInsert(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("steps"),
		postgrescontainer.WithUsername("tracker"),
		postgrescontainer.WithPassword("tracker"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	// Idempotent.
	require.NoError(t, repo.EnsureSchema(ctx))

	latest, err := repo.LatestRecord(ctx)
	require.NoError(t, err)
	require.Nil(t, latest)

	base := time.UnixMilli(time.Now().UnixMilli())
	for i, steps := range []int64{100, 180, 260} {
		require.NoError(t, repo.InsertRecord(ctx, domain.StepRecord{
			CountSinceReboot: steps,
			Timestamp:        base.Add(time.Duration(i) * 10 * time.Second),
			StepCount:        steps,
		}))
	}

	latest, err = repo.LatestRecord(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, int64(260), latest.StepCount)
	require.True(t, latest.Timestamp.Equal(base.Add(20*time.Second)))
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
