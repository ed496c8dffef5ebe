package sensor

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Offset: 1, Time: time.Now(), Value: []byte(`{"type":"STEP_COUNTER","value":120}`)},
			{Offset: 2, Time: time.Now(), Value: []byte(`{"type":"STEP_COUNTER","value":133}`)},
		},
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, handler.events, 2)
	require.Equal(t, 2, reader.commitCalls)
	last, ok := handler.events[1].(StepCounter)
	require.True(t, ok)
	require.Equal(t, int64(133), last.CountSinceReboot)
}

func TestProcessorCommitsMalformedReadings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Offset: 1, Value: []byte(`{`)},
			{Offset: 2, Value: []byte(`{"type":"GYROSCOPE","value":1}`)},
		},
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	require.ErrorIs(t, processor.Run(ctx), context.Canceled)
	require.Empty(t, handler.events)
	require.Equal(t, 2, reader.commitCalls)
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{{Offset: 7, Value: []byte(`{"type":"STEP_COUNTER","value":5}`)}},
	}
	handler := &stubHandler{err: errors.New("store unavailable")}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	require.ErrorIs(t, processor.Run(ctx), context.Canceled)
	require.Len(t, handler.events, 1)
	require.Equal(t, 0, reader.commitCalls)
}

func TestDecode(t *testing.T) {
	now := time.Now()

	ev, err := Decode([]byte(`{"type":"STEP_COUNTER","value":42}`), now)
	require.NoError(t, err)
	require.Equal(t, StepCounter{CountSinceReboot: 42, At: now}, ev)

	ev, err = Decode([]byte(`{"type":"ACCURACY_CHANGED","value":3}`), now)
	require.NoError(t, err)
	require.Equal(t, KindAccuracyChanged, ev.Kind())

	_, err = Decode([]byte(`{"type":"STEP_COUNTER","value":-1}`), now)
	require.ErrorIs(t, err, ErrInvalidReading)

	_, err = Decode([]byte(`{"type":"LIGHT","value":1}`), now)
	require.ErrorIs(t, err, ErrUnknownEvent)
}

func TestReaderConfigAvailable(t *testing.T) {
	require.False(t, ReaderConfig{}.Available())
	require.False(t, ReaderConfig{Brokers: []string{"kafka:9092"}}.Available())
	require.True(t, ReaderConfig{Brokers: []string{"kafka:9092"}, Topic: "sensor.steps"}.Available())
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	events []Event
	err    error
}

func (h *stubHandler) HandleEvent(_ context.Context, ev Event) error {
	h.events = append(h.events, ev)
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
