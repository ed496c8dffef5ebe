// Package service exposes the step count and callback registration to other processes.
package service

import (
	"example.com/steptracker/internal/subscriber"
)

// Counter reports the current day total.
type Counter interface {
	StepCount() int64
}

// Registry holds remote callback handles.
type Registry interface {
	Register(h subscriber.Handle)
	Unregister(h subscriber.Handle)
	Len() int
}

// StepService is the cross-process surface of the tracker.
type StepService struct {
	counter  Counter
	registry Registry
}

// NewStepService constructs a StepService.
func NewStepService(counter Counter, registry Registry) *StepService {
	return &StepService{counter: counter, registry: registry}
}

// StepCount returns the day total, or -1 before the first sensor reading.
func (s *StepService) StepCount() int64 {
	return s.counter.StepCount()
}

// RegisterCallback subscribes h to step updates. A nil handle is ignored.
func (s *StepService) RegisterCallback(h subscriber.Handle) {
	if h == nil {
		return
	}
	s.registry.Register(h)
}

// UnregisterCallback stops updates to h. A nil handle is ignored.
func (s *StepService) UnregisterCallback(h subscriber.Handle) {
	if h == nil {
		return
	}
	s.registry.Unregister(h)
}

// CallbackCount returns the number of registered callbacks.
func (s *StepService) CallbackCount() int {
	return s.registry.Len()
}
