package tracker

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/steptracker/internal/domain"
	"example.com/steptracker/internal/sensor"
)

var (
	utc  = time.UTC
	base = time.Date(2024, time.March, 10, 9, 0, 0, 0, utc)
)

type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	boot time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) BootTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.boot
}

func (c *fakeClock) SetBoot(t time.Time) {
	c.mu.Lock()
	c.boot = t
	c.mu.Unlock()
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type stubStore struct {
	latest    *domain.StepRecord
	lookupErr error
	insertErr error
	inserted  []domain.StepRecord
	lookups   int
}

func (s *stubStore) LatestRecord(context.Context) (*domain.StepRecord, error) {
	s.lookups++
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.latest, nil
}

func (s *stubStore) InsertRecord(_ context.Context, r domain.StepRecord) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, r)
	return nil
}

type recordingNotifier struct {
	counts []int64
}

func (n *recordingNotifier) NotifyStepCount(count int64) {
	n.counts = append(n.counts, count)
}

func newTestTracker(store domain.RecordStore, clock *fakeClock, notifier Notifier) *Tracker {
	return New(store, notifier,
		WithClock(clock),
		WithLocation(utc),
		WithLogger(log.New(io.Discard, "", 0)),
	)
}

func step(raw int64) sensor.Event {
	return sensor.StepCounter{CountSinceReboot: raw}
}

func TestTrackerStartsUninitialized(t *testing.T) {
	tr := newTestTracker(&stubStore{}, &fakeClock{now: base, boot: base.Add(-time.Hour)}, nil)

	require.Equal(t, Uninitialized, tr.StepCount())
	require.False(t, tr.Tracking())
}

func TestTrackerIncrementalIdempotence(t *testing.T) {
	clock := &fakeClock{now: base, boot: base.Add(-2 * time.Hour)}
	latest := &domain.StepRecord{CountSinceReboot: 300, Timestamp: base.Add(-time.Hour), StepCount: 840}
	store := &stubStore{latest: latest}
	notifier := &recordingNotifier{}
	tr := newTestTracker(store, clock, notifier)

	raws := []int64{400, 410, 455, 500, 660}
	for i, raw := range raws {
		clock.Set(base.Add(time.Duration(i) * time.Second))
		require.NoError(t, tr.HandleEvent(context.Background(), step(raw)))
	}

	start := domain.Resolve(latest, raws[0], clock.boot, base, utc)
	require.Equal(t, int64(940), start)
	require.Equal(t, start+raws[len(raws)-1]-raws[0], tr.StepCount())
	require.Equal(t, []int64{940, 950, 995, 1040, 1200}, notifier.counts)
	require.True(t, tr.Tracking())
	require.Equal(t, 1, store.lookups)
}

func TestTrackerThrottlesPersistence(t *testing.T) {
	clock := &fakeClock{now: base, boot: base.Add(-time.Hour)}
	store := &stubStore{}
	tr := newTestTracker(store, clock, nil)

	for i, offset := range []time.Duration{0, 3 * time.Second, 6 * time.Second, 12 * time.Second} {
		clock.Set(base.Add(offset))
		require.NoError(t, tr.HandleEvent(context.Background(), step(int64(100+i*10))))
	}

	require.Len(t, store.inserted, 2)
	require.Equal(t, base, store.inserted[0].Timestamp)
	require.Equal(t, base.Add(12*time.Second), store.inserted[1].Timestamp)
	require.Equal(t, int64(130), store.inserted[1].CountSinceReboot)
	require.Equal(t, int64(130), store.inserted[1].StepCount)
}

func TestTrackerStaysUninitializedOnLookupFailure(t *testing.T) {
	clock := &fakeClock{now: base, boot: base.Add(-time.Hour)}
	store := &stubStore{lookupErr: errors.New("connection refused")}
	notifier := &recordingNotifier{}
	tr := newTestTracker(store, clock, notifier)

	err := tr.HandleEvent(context.Background(), step(50))
	require.ErrorIs(t, err, domain.ErrRecordLookupFailed)
	require.Equal(t, Uninitialized, tr.StepCount())
	require.Empty(t, notifier.counts)

	store.lookupErr = nil
	require.NoError(t, tr.HandleEvent(context.Background(), step(60)))
	require.Equal(t, int64(60), tr.StepCount())
	require.Equal(t, 2, store.lookups)
}

func TestTrackerRetriesAfterInsertFailure(t *testing.T) {
	clock := &fakeClock{now: base, boot: base.Add(-time.Hour)}
	store := &stubStore{insertErr: errors.New("disk full")}
	tr := newTestTracker(store, clock, nil)

	err := tr.HandleEvent(context.Background(), step(10))
	require.ErrorIs(t, err, ErrPersistFailed)
	require.Equal(t, int64(10), tr.StepCount())

	store.insertErr = nil
	clock.Set(base.Add(time.Second))
	require.NoError(t, tr.HandleEvent(context.Background(), step(15)))
	require.Len(t, store.inserted, 1)
	require.Equal(t, int64(15), store.inserted[0].StepCount)
}

func TestTrackerCountsFromZeroAfterReboot(t *testing.T) {
	clock := &fakeClock{now: base, boot: base.Add(-time.Hour)}
	tr := newTestTracker(&stubStore{}, clock, nil)

	require.NoError(t, tr.HandleEvent(context.Background(), step(200)))
	clock.SetBoot(base.Add(30 * time.Second))
	clock.Set(base.Add(time.Minute))
	require.NoError(t, tr.HandleEvent(context.Background(), step(30)))
	clock.Set(base.Add(2 * time.Minute))
	require.NoError(t, tr.HandleEvent(context.Background(), step(45)))

	require.Equal(t, int64(245), tr.StepCount())
}

func TestTrackerIgnoresReplayedReadings(t *testing.T) {
	clock := &fakeClock{now: base, boot: base.Add(-time.Hour)}
	store := &stubStore{}
	notifier := &recordingNotifier{}
	tr := newTestTracker(store, clock, notifier)

	for i, raw := range []int64{1000, 1010, 990, 1010} {
		clock.Set(base.Add(time.Duration(i) * time.Second))
		require.NoError(t, tr.HandleEvent(context.Background(), step(raw)))
	}

	require.Equal(t, int64(1010), tr.StepCount())
	require.Equal(t, []int64{1000, 1010, 1010}, notifier.counts)
	require.Len(t, store.inserted, 1)
}

func TestTrackerRollsOverAtMidnight(t *testing.T) {
	evening := time.Date(2024, time.March, 10, 23, 59, 0, 0, utc)
	clock := &fakeClock{now: evening, boot: evening.Add(-time.Hour)}
	notifier := &recordingNotifier{}
	tr := newTestTracker(&stubStore{}, clock, notifier)

	require.NoError(t, tr.HandleEvent(context.Background(), step(800)))
	clock.Set(evening.Add(2 * time.Minute))
	require.NoError(t, tr.HandleEvent(context.Background(), step(820)))
	clock.Set(evening.Add(3 * time.Minute))
	require.NoError(t, tr.HandleEvent(context.Background(), step(835)))

	require.Equal(t, []int64{800, 0, 15}, notifier.counts)
}

func TestTrackerFlushPersistsThrottledState(t *testing.T) {
	clock := &fakeClock{now: base, boot: base.Add(-time.Hour)}
	store := &stubStore{}
	tr := newTestTracker(store, clock, nil)

	require.NoError(t, tr.Flush(context.Background()))
	require.Empty(t, store.inserted)

	require.NoError(t, tr.HandleEvent(context.Background(), step(10)))
	clock.Set(base.Add(2 * time.Second))
	require.NoError(t, tr.HandleEvent(context.Background(), step(25)))
	require.Len(t, store.inserted, 1)

	clock.Set(base.Add(5 * time.Second))
	require.NoError(t, tr.Flush(context.Background()))
	require.Len(t, store.inserted, 2)
	require.Equal(t, base.Add(2*time.Second), store.inserted[1].Timestamp)
	require.Equal(t, int64(25), store.inserted[1].StepCount)

	require.NoError(t, tr.Flush(context.Background()))
	require.Len(t, store.inserted, 2)
}

func TestTrackerIgnoresAccuracyChanges(t *testing.T) {
	store := &stubStore{}
	tr := newTestTracker(store, &fakeClock{now: base, boot: base}, nil)

	require.NoError(t, tr.HandleEvent(context.Background(), sensor.AccuracyChanged{Accuracy: 3}))
	require.Equal(t, Uninitialized, tr.StepCount())
	require.Zero(t, store.lookups)
}

type foreignEvent struct {
	sensor.StepCounter
}

func TestTrackerRejectsUnknownEvents(t *testing.T) {
	tr := newTestTracker(&stubStore{}, &fakeClock{now: base, boot: base}, nil)

	err := tr.HandleEvent(context.Background(), foreignEvent{})
	require.ErrorIs(t, err, sensor.ErrUnknownEvent)
}
