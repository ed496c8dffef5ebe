// Package tracker turns raw count-since-reboot readings into a calendar-day step total.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"example.com/steptracker/internal/domain"
	"example.com/steptracker/internal/observability"
	"example.com/steptracker/internal/sensor"
)

// Uninitialized is reported as the step count until the first sensor event is handled.
const Uninitialized int64 = -1

// DefaultPersistInterval caps snapshot writes; the sensor can fire many times a second.
const DefaultPersistInterval = 10 * time.Second

// ErrPersistFailed wraps store errors raised while writing a snapshot.
var ErrPersistFailed = errors.New("step snapshot persist failed")

// Notifier receives every new day total. Implementations must not block.
type Notifier interface {
	NotifyStepCount(count int64)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(count int64)

// NotifyStepCount calls f(count).
func (f NotifierFunc) NotifyStepCount(count int64) { f(count) }

// Option configures optional behaviour for the Tracker.
type Option func(*Tracker)

// WithClock overrides the wall/boot clock.
func WithClock(clock Clock) Option {
	return func(t *Tracker) {
		t.clock = clock
	}
}

// WithLocation sets the zone whose calendar days bound the day total.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithPersistInterval overrides the minimum spacing between snapshot writes.
func WithPersistInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.persistInterval = d
		}
	}
}

// WithLogger overrides the logger used to report state changes.
func WithLogger(logger *log.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// Tracker is the step-counting state machine. It starts Uninitialized and moves to
// Tracking on the first step counter event.
type Tracker struct {
	store           domain.RecordStore
	notifier        Notifier
	clock           Clock
	loc             *time.Location
	persistInterval time.Duration
	logger          *log.Logger

	count atomic.Int64

	mu          sync.Mutex
	lastRaw     int64
	lastEventAt time.Time
	lastPersist time.Time
	dirty       bool
}

// New constructs a Tracker in the Uninitialized state.
func New(store domain.RecordStore, notifier Notifier, opts ...Option) *Tracker {
	t := &Tracker{
		store:           store,
		notifier:        notifier,
		clock:           SystemClock{},
		loc:             time.Local,
		persistInterval: DefaultPersistInterval,
		logger:          log.New(log.Writer(), "[tracker] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.count.Store(Uninitialized)
	observability.RecordStepCount(Uninitialized)
	return t
}

// StepCount returns the current day total, or Uninitialized. Safe from any goroutine.
func (t *Tracker) StepCount() int64 {
	return t.count.Load()
}

// Tracking reports whether at least one step counter event has been handled.
func (t *Tracker) Tracking() bool {
	return t.count.Load() != Uninitialized
}

// HandleEvent applies a sensor event. Store errors are returned after the in-memory
// total and notification have already been updated.
func (t *Tracker) HandleEvent(ctx context.Context, ev sensor.Event) error {
	switch e := ev.(type) {
	case sensor.StepCounter:
		return t.handleStepCounter(ctx, e)
	case sensor.AccuracyChanged:
		return nil
	default:
		return fmt.Errorf("%w: %T", sensor.ErrUnknownEvent, ev)
	}
}

func (t *Tracker) handleStepCounter(ctx context.Context, e sensor.StepCounter) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	raw := e.CountSinceReboot

	var steps int64
	if current := t.count.Load(); current == Uninitialized {
		latest, err := t.store.LatestRecord(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrRecordLookupFailed, err)
		}
		steps = domain.Resolve(latest, raw, t.clock.BootTime(), now, t.loc)
		t.logger.Printf("tracking started: steps_today=%d raw=%d resumed=%t", steps, raw, latest != nil)
	} else {
		var ok bool
		if steps, ok = t.advance(current, raw, now); !ok {
			return nil
		}
	}

	t.count.Store(steps)
	t.lastRaw = raw
	t.lastEventAt = now
	t.dirty = true
	observability.RecordStepCount(steps)

	if t.notifier != nil {
		t.notifier.NotifyStepCount(steps)
	}

	if !t.lastPersist.IsZero() && now.Sub(t.lastPersist) < t.persistInterval {
		return nil
	}
	return t.persistLocked(ctx, now)
}

// advance applies a reading while Tracking. It reports false for a stale reading,
// which leaves the state untouched.
func (t *Tracker) advance(current, raw int64, now time.Time) (int64, bool) {
	switch {
	case !domain.SameDay(t.lastEventAt, now, t.loc):
		// First reading of a new local day; steps before midnight stay with yesterday.
		observability.RecordRollover()
		t.logger.Printf("day rollover: previous_total=%d", current)
		return 0, true
	case raw < t.lastRaw && t.clock.BootTime().After(t.lastEventAt):
		// The device rebooted since the last reading, so raw counts from zero.
		observability.RecordCounterReset()
		t.logger.Printf("reboot observed (raw %d -> %d), counting from restart", t.lastRaw, raw)
		return current + raw, true
	case raw < t.lastRaw:
		// Redelivered or out-of-order reading; the counter has not restarted.
		observability.RecordStaleReading()
		t.logger.Printf("ignoring stale reading: raw=%d last_raw=%d", raw, t.lastRaw)
		return current, false
	default:
		return current + raw - t.lastRaw, true
	}
}

// Flush writes the latest state if an event has been handled since the last write,
// regardless of the persist interval.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.dirty || t.count.Load() == Uninitialized {
		return nil
	}
	return t.persistLocked(ctx, t.clock.Now())
}

// persistLocked writes a snapshot stamped with the time the state was captured.
func (t *Tracker) persistLocked(ctx context.Context, now time.Time) error {
	record := domain.StepRecord{
		CountSinceReboot: t.lastRaw,
		Timestamp:        t.lastEventAt,
		StepCount:        t.count.Load(),
	}
	if err := t.store.InsertRecord(ctx, record); err != nil {
		observability.RecordSnapshotFailed()
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	t.lastPersist = now
	t.dirty = false
	observability.RecordSnapshotPersisted(now)
	return nil
}
