package sensor

import (
	"time"

	"github.com/segmentio/kafka-go"
)

// ReaderConfig describes where sensor readings are consumed from.
type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Available reports whether a sensor feed is configured at all. Without one the
// tracker never receives events.
func (c ReaderConfig) Available() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// NewKafkaReader builds a consumer-group reader for the sensor topic.
func NewKafkaReader(cfg ReaderConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        1e6,
		MaxWait:         250 * time.Millisecond,
		CommitInterval:  time.Second,
		ReadLagInterval: -1,
	})
}
