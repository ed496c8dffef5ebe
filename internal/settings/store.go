// Package settings loads user preferences from a YAML file and reports changes.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// KeyResidentForegroundService toggles resident mode.
const KeyResidentForegroundService = "resident_foreground_service"

// Values is the on-disk settings document.
type Values struct {
	ResidentForegroundService bool `yaml:"resident_foreground_service" json:"resident_foreground_service"`
}

// Listener is told which key changed.
type Listener interface {
	OnChange(key string)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(key string)

// OnChange calls f(key).
func (f ListenerFunc) OnChange(key string) { f(key) }

// Store holds the current settings. A missing file means defaults.
type Store struct {
	path   string
	logger *log.Logger

	mu        sync.RWMutex
	values    Values
	listeners []Listener
}

// Open reads path into a new Store.
func Open(path string) (*Store, error) {
	s := &Store{
		path:   path,
		logger: log.New(log.Writer(), "[settings] ", log.LstdFlags),
	}
	values, err := s.read()
	if err != nil {
		return nil, err
	}
	s.values = values
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Values returns a copy of the current settings.
func (s *Store) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

// ResidentForegroundService reports whether resident mode is enabled.
func (s *Store) ResidentForegroundService() bool {
	return s.Values().ResidentForegroundService
}

// Subscribe adds a change listener.
func (s *Store) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Reload re-reads the file and notifies listeners of every key whose value changed.
// On a read or parse error the previous values are kept.
func (s *Store) Reload() error {
	next, err := s.read()
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.values
	s.values = next
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	var changed []string
	if prev.ResidentForegroundService != next.ResidentForegroundService {
		changed = append(changed, KeyResidentForegroundService)
	}
	for _, key := range changed {
		s.logger.Printf("setting changed: %s", key)
		for _, l := range listeners {
			l.OnChange(key)
		}
	}
	return nil
}

func (s *Store) read() (Values, error) {
	var v Values
	if s.path == "" {
		return v, nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("read settings %s: %w", s.path, err)
	}
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	return v, nil
}
