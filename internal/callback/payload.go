// Package callback implements the remote transports a step update can be pushed over.
package callback

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"example.com/steptracker/internal/events"
)

// DefaultTimeout bounds a single delivery.
const DefaultTimeout = 5 * time.Second

func encodeStepCount(count int64) ([]byte, error) {
	return json.Marshal(events.StepCountUpdated{
		EventID:    uuid.NewString(),
		StepCount:  count,
		OccurredAt: time.Now().UTC(),
		Version:    events.SchemaVersion,
	})
}
