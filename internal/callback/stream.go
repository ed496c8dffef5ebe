package callback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"example.com/steptracker/internal/subscriber"
)

// StreamHandle pushes step updates over a WebSocket connection for as long as the
// connection stays open.
type StreamHandle struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// NewStreamHandle wraps an upgraded connection.
func NewStreamHandle(conn *websocket.Conn, writeTimeout time.Duration) *StreamHandle {
	if writeTimeout <= 0 {
		writeTimeout = DefaultTimeout
	}
	return &StreamHandle{
		conn:         conn,
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// OnStepUpdate implements subscriber.Handle. Any write failure means the peer is gone.
func (s *StreamHandle) OnStepUpdate(ctx context.Context, count int64) error {
	payload, err := encodeStepCount(count)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(s.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.done:
		return fmt.Errorf("%w: stream closed", subscriber.ErrGone)
	default:
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("%w: %w", subscriber.ErrGone, err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: %w", subscriber.ErrGone, err)
	}
	return nil
}

// ReadUntilClosed discards inbound frames until the peer disconnects, then closes the
// handle. It blocks and is meant to run on the HTTP handler goroutine.
func (s *StreamHandle) ReadUntilClosed() {
	defer s.Close()
	// Clear any deadline inherited from the HTTP server before the upgrade.
	_ = s.conn.SetReadDeadline(time.Time{})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Done is closed once the handle has been closed.
func (s *StreamHandle) Done() <-chan struct{} {
	return s.done
}

// Close closes the connection. It is safe to call more than once.
func (s *StreamHandle) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
