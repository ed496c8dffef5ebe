// Package dispatch moves step notifications off the sensor goroutine and delivers
// them to subscribers in order.
package dispatch

import (
	"context"
	"log"
	"time"
)

// DefaultQueueSize bounds the number of notifications waiting for delivery.
const DefaultQueueSize = 256

// Task is one unit of delivery work.
type Task func(ctx context.Context)

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the dispatcher logger.
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher runs posted tasks one at a time, in posting order, on a single goroutine.
type Dispatcher struct {
	queue            chan Task
	logger           *log.Logger
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher whose queue holds up to size tasks.
func NewDispatcher(size int, opts ...Option) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	d := &Dispatcher{
		queue:            make(chan Task, size),
		logger:           log.New(log.Writer(), "[dispatch] ", log.LstdFlags),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start runs the delivery loop until ctx is cancelled. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	defer close(d.shutdownComplete)

	for {
		select {
		case <-ctx.Done():
			if pending := len(d.queue); pending > 0 {
				d.logger.Printf("stopping with %d undelivered notifications", pending)
			}
			return
		case task := <-d.queue:
			queueDepth.Set(float64(len(d.queue)))
			d.run(ctx, task)
		}
	}
}

// Wait blocks until the delivery loop has stopped.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// Post enqueues task without blocking. It reports false when the queue is full and
// the task was dropped.
func (d *Dispatcher) Post(task Task) bool {
	if task == nil {
		return false
	}
	select {
	case d.queue <- task:
		queueDepth.Set(float64(len(d.queue)))
		return true
	default:
		droppedCounter.Inc()
		return false
	}
}

func (d *Dispatcher) run(ctx context.Context, task Task) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			d.logger.Printf("notification task panicked: %v", p)
		}
		taskDuration.Observe(time.Since(start).Seconds())
	}()
	task(ctx)
}
