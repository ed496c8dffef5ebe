package resident

import (
	"log"
	"sync"
)

// LogPresenter writes the ongoing status to a logger.
type LogPresenter struct {
	logger *log.Logger

	mu   sync.Mutex
	last  int64
	shown bool
}

// NewLogPresenter creates a presenter. A nil logger uses the default prefix.
func NewLogPresenter(logger *log.Logger) *LogPresenter {
	if logger == nil {
		logger = log.New(log.Writer(), "[status] ", log.LstdFlags)
	}
	return &LogPresenter{logger: logger}
}

// Show prints the step count when it differs from what is already displayed.
func (p *LogPresenter) Show(count int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shown && p.last == count {
		return
	}
	p.last = count
	p.shown = true
	p.logger.Printf("%d steps today", count)
}

// Hide clears the status.
func (p *LogPresenter) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.shown {
		return
	}
	p.shown = false
	p.logger.Printf("status cleared")
}
