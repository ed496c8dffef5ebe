package callback

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(context.Context, ...kafka.Message) error
	Close() error
}

// KafkaHandle publishes step updates to a Kafka topic for downstream consumers.
type KafkaHandle struct {
	writer  messageWriter
	key     []byte
	timeout time.Duration
}

// NewKafkaHandle creates a handle writing to topic on brokers.
func NewKafkaHandle(brokers []string, topic, key string, timeout time.Duration) *KafkaHandle {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		Async:        false,
	}
	return newKafkaHandle(writer, key, timeout)
}

func newKafkaHandle(writer messageWriter, key string, timeout time.Duration) *KafkaHandle {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &KafkaHandle{writer: writer, key: []byte(key), timeout: timeout}
}

// OnStepUpdate implements subscriber.Handle.
func (k *KafkaHandle) OnStepUpdate(ctx context.Context, count int64) error {
	payload, err := encodeStepCount(count)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   k.key,
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

// Close releases the underlying writer.
func (k *KafkaHandle) Close() error {
	return k.writer.Close()
}
