// Package sensor models step sensor events and feeds them from Kafka into a Handler.
package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownEvent is returned when an event kind is not recognised.
	ErrUnknownEvent = errors.New("unknown sensor event")
	// ErrInvalidReading is returned when a reading carries an impossible value.
	ErrInvalidReading = errors.New("invalid sensor reading")
)

// Kind names the sensor event variants on the wire.
type Kind string

const (
	KindStepCounter     Kind = "STEP_COUNTER"
	KindAccuracyChanged Kind = "ACCURACY_CHANGED"
)

// Event is a closed union of sensor events. The variants are StepCounter and
// AccuracyChanged; consumers switch on the concrete type.
type Event interface {
	Kind() Kind
	ReceivedAt() time.Time
	sealed()
}

// StepCounter carries the cumulative hardware step count since the last device boot.
type StepCounter struct {
	CountSinceReboot int64
	At               time.Time
}

func (StepCounter) Kind() Kind              { return KindStepCounter }
func (e StepCounter) ReceivedAt() time.Time { return e.At }
func (StepCounter) sealed()                 {}

// AccuracyChanged reports a change in sensor accuracy. The tracker ignores it.
type AccuracyChanged struct {
	Accuracy int
	At       time.Time
}

func (AccuracyChanged) Kind() Kind              { return KindAccuracyChanged }
func (e AccuracyChanged) ReceivedAt() time.Time { return e.At }
func (AccuracyChanged) sealed()                 {}

// Reading is the JSON shape published by the sensor driver.
type Reading struct {
	Type  Kind  `json:"type"`
	Value int64 `json:"value"`
}

// Decode converts a wire payload into an Event stamped with the supplied receive time.
func Decode(payload []byte, receivedAt time.Time) (Event, error) {
	var r Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("decode sensor reading: %w", err)
	}

	switch r.Type {
	case KindStepCounter:
		if r.Value < 0 {
			return nil, fmt.Errorf("%w: negative step counter %d", ErrInvalidReading, r.Value)
		}
		return StepCounter{CountSinceReboot: r.Value, At: receivedAt}, nil
	case KindAccuracyChanged:
		return AccuracyChanged{Accuracy: int(r.Value), At: receivedAt}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, r.Type)
	}
}
