package dispatch

import (
	"context"
	"log"

	"example.com/steptracker/internal/subscriber"
)

// Broadcaster delivers one update to every registered subscriber.
type Broadcaster interface {
	Broadcast(ctx context.Context, fn subscriber.DeliverFunc) int
}

// StepNotifier turns tracker notifications into broadcast rounds on the dispatcher.
type StepNotifier struct {
	dispatcher  *Dispatcher
	broadcaster Broadcaster
	logger      *log.Logger
}

// NewStepNotifier wires a broadcaster behind the dispatcher queue.
func NewStepNotifier(d *Dispatcher, b Broadcaster) *StepNotifier {
	return &StepNotifier{
		dispatcher:  d,
		broadcaster: b,
		logger:      d.logger,
	}
}

// NotifyStepCount posts one broadcast of count. It never blocks the caller.
func (n *StepNotifier) NotifyStepCount(count int64) {
	posted := n.dispatcher.Post(func(ctx context.Context) {
		n.broadcaster.Broadcast(ctx, subscriber.StepUpdate(count))
	})
	if !posted {
		n.logger.Printf("queue full, dropped step update %d", count)
	}
}
