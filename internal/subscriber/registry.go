// Package subscriber keeps the set of remote step-update handles and fans updates out to them.
package subscriber

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrGone marks a delivery failure after which the handle can never succeed again.
	// Handles returning it are pruned at the end of the broadcast round.
	ErrGone = errors.New("subscriber gone")
	// ErrDeliveryPanic wraps a panic raised while delivering to one handle.
	ErrDeliveryPanic = errors.New("subscriber delivery panicked")
)

// Handle is a remote callback endpoint. Its identity is the handle value itself, so
// implementations must be comparable (the shipped transports are all pointers).
// Register and Unregister ignore handles whose dynamic value is not comparable.
type Handle interface {
	OnStepUpdate(ctx context.Context, count int64) error
}

// DeliverFunc performs one delivery to a handle.
type DeliverFunc func(ctx context.Context, h Handle) error

type entry struct {
	handle  Handle
	seq     uint64
	removed atomic.Bool
}

// Option configures optional behaviour for the Registry.
type Option func(*Registry)

// WithLogger overrides the logger used to report delivery failures.
func WithLogger(logger *log.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// Registry is a concurrency-safe set of handles. Register and Unregister may run
// concurrently with Broadcast; each broadcast round works on the membership as it
// was when the round began.
type Registry struct {
	mu      sync.Mutex
	entries map[Handle]*entry
	nextSeq uint64

	// round brackets a broadcast so only one runs at a time.
	round sync.Mutex

	logger *log.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[Handle]*entry),
		logger:  log.New(log.Writer(), "[subscriber] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds h to the set. Registering a handle that is already present is a no-op.
// A handle that cannot be used as a map key, such as a struct value holding a slice,
// is logged and dropped.
func (r *Registry) Register(h Handle) {
	if !r.usable(h) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[h]; ok {
		return
	}
	r.nextSeq++
	r.entries[h] = &entry{handle: h, seq: r.nextSeq}
	subscribersGauge.Set(float64(len(r.entries)))
}

// Unregister removes h. It is a no-op when h is not registered. A round already in
// progress skips h unless delivery to it has already begun.
func (r *Registry) Unregister(h Handle) {
	if !r.usable(h) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h]
	if !ok {
		return
	}
	e.removed.Store(true)
	delete(r.entries, h)
	subscribersGauge.Set(float64(len(r.entries)))
}

func (r *Registry) usable(h Handle) bool {
	if h == nil {
		return false
	}
	if !reflect.ValueOf(h).Comparable() {
		r.logger.Printf("ignoring non-comparable handle of type %T", h)
		return false
	}
	return true
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Broadcast calls fn for every handle registered when the round starts, in
// registration order. Failures and panics are contained per handle and never reach
// the caller. It returns the number of successful deliveries.
func (r *Registry) Broadcast(ctx context.Context, fn DeliverFunc) int {
	r.round.Lock()
	defer r.round.Unlock()

	start := time.Now()
	defer func() { broadcastDuration.Observe(time.Since(start).Seconds()) }()

	var (
		delivered int
		gone      []*entry
	)
	for _, e := range r.snapshot() {
		if e.removed.Load() {
			continue
		}
		if err := deliver(ctx, e.handle, fn); err != nil {
			deliveriesCounter.WithLabelValues("failed").Inc()
			r.logger.Printf("delivery to %T failed: %v", e.handle, err)
			if errors.Is(err, ErrGone) {
				gone = append(gone, e)
			}
			continue
		}
		deliveriesCounter.WithLabelValues("delivered").Inc()
		delivered++
	}

	r.prune(gone)
	return delivered
}

func (r *Registry) snapshot() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *entry) int { return cmp.Compare(a.seq, b.seq) })
	return out
}

func (r *Registry) prune(gone []*entry) {
	if len(gone) == 0 {
		return
	}

	r.mu.Lock()
	var closers []io.Closer
	for _, e := range gone {
		// Skip handles that were unregistered and re-registered during the round.
		if current, ok := r.entries[e.handle]; !ok || current != e {
			continue
		}
		e.removed.Store(true)
		delete(r.entries, e.handle)
		prunedCounter.Inc()
		if c, ok := e.handle.(io.Closer); ok {
			closers = append(closers, c)
		}
	}
	subscribersGauge.Set(float64(len(r.entries)))
	r.mu.Unlock()

	for _, c := range closers {
		if err := c.Close(); err != nil {
			r.logger.Printf("closing pruned subscriber: %v", err)
		}
	}
}

func deliver(ctx context.Context, h Handle, fn DeliverFunc) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrDeliveryPanic, p)
		}
	}()
	return fn(ctx, h)
}

// StepUpdate returns a DeliverFunc that pushes count to each handle.
func StepUpdate(count int64) DeliverFunc {
	return func(ctx context.Context, h Handle) error {
		return h.OnStepUpdate(ctx, count)
	}
}
