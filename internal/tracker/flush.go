package tracker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// FlushScheduler periodically persists state the write throttle has held back, so a
// sensor that goes quiet does not leave its last readings unsaved.
type FlushScheduler struct {
	scheduler gocron.Scheduler
	tracker   *Tracker
	timeout   time.Duration
	logger    *log.Logger
}

// NewFlushScheduler creates a scheduler running Tracker.Flush every interval.
func NewFlushScheduler(t *Tracker, interval time.Duration) (*FlushScheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	fs := &FlushScheduler{
		scheduler: s,
		tracker:   t,
		timeout:   5 * time.Second,
		logger:    log.New(log.Writer(), "[flush] ", log.LstdFlags),
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fs.flush),
		gocron.WithName("snapshot-flush"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create flush job: %w", err)
	}
	return fs, nil
}

// Start begins running the flush job.
func (f *FlushScheduler) Start() {
	f.scheduler.Start()
}

// Shutdown stops the scheduler and flushes once more.
func (f *FlushScheduler) Shutdown() error {
	err := f.scheduler.Shutdown()
	f.flush()
	return err
}

func (f *FlushScheduler) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if err := f.tracker.Flush(ctx); err != nil {
		f.logger.Printf("flush failed: %v", err)
	}
}
