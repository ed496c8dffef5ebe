// Package resident keeps an ongoing step status visible while resident mode is on.
package resident

import (
	"log"
	"sync"
	"sync/atomic"

	"example.com/steptracker/internal/settings"
)

// Source reports the persisted resident preference.
type Source interface {
	ResidentForegroundService() bool
}

// Presenter renders the ongoing status.
type Presenter interface {
	Show(count int64)
	Hide()
}

// Counter reports the current step count, negative while untracked.
type Counter interface {
	StepCount() int64
}

// Policy shows the status as soon as resident mode is enabled, refreshes it on
// each step update while the mode is on, and hides it when the mode is disabled.
type Policy struct {
	source    Source
	presenter Presenter
	counter   Counter
	logger    *log.Logger

	resident atomic.Bool

	mu      sync.Mutex
	showing bool
}

// NewPolicy seeds the resident flag from source. The status is not shown until
// the first step update or the next enable.
func NewPolicy(source Source, presenter Presenter, counter Counter) *Policy {
	p := &Policy{
		source:    source,
		presenter: presenter,
		counter:   counter,
		logger:    log.New(log.Writer(), "[resident] ", log.LstdFlags),
	}
	p.resident.Store(source.ResidentForegroundService())
	return p
}

// Resident reports whether resident mode is currently enabled.
func (p *Policy) Resident() bool {
	return p.resident.Load()
}

// OnChange implements settings.Listener. Enabling shows the current count right
// away; disabling hides the status.
func (p *Policy) OnChange(key string) {
	if key != settings.KeyResidentForegroundService {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	enabled := p.source.ResidentForegroundService()
	if p.resident.Swap(enabled) == enabled {
		return
	}
	p.logger.Printf("resident mode enabled=%t", enabled)
	if enabled {
		p.presenter.Show(max(p.counter.StepCount(), 0))
		p.showing = true
		return
	}
	if p.showing {
		p.presenter.Hide()
		p.showing = false
	}
}

// OnStepUpdate refreshes or clears the presenter.
func (p *Policy) OnStepUpdate(count int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.resident.Load() {
		p.presenter.Show(count)
		p.showing = true
		return
	}
	if p.showing {
		p.presenter.Hide()
		p.showing = false
	}
}
