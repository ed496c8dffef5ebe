package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/steptracker/internal/domain"
)

func TestStoreRoundTripsLatestRecord(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "steps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	latest, err := store.LatestRecord(ctx)
	require.NoError(t, err)
	require.Nil(t, latest)

	base := time.UnixMilli(1_740_000_000_123)
	require.NoError(t, store.InsertRecord(ctx, domain.StepRecord{CountSinceReboot: 300, Timestamp: base, StepCount: 300}))
	require.NoError(t, store.InsertRecord(ctx, domain.StepRecord{CountSinceReboot: 450, Timestamp: base.Add(10 * time.Second), StepCount: 450}))

	latest, err = store.LatestRecord(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Equal(t, int64(450), latest.CountSinceReboot)
	require.Equal(t, int64(450), latest.StepCount)
	require.True(t, latest.Timestamp.Equal(base.Add(10*time.Second)))
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "steps.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.InsertRecord(ctx, domain.StepRecord{CountSinceReboot: 5, Timestamp: time.UnixMilli(1000), StepCount: 5}))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	latest, err := reopened.LatestRecord(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), latest.StepCount)
}

func TestStoreRejectsNegativeTotals(t *testing.T) {
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	err = store.InsertRecord(context.Background(), domain.StepRecord{StepCount: -1})
	require.ErrorIs(t, err, domain.ErrNegativeStepCount)
}
