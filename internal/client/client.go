// Package client talks to a running step tracker daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"example.com/steptracker/internal/events"
)

// StatusError represents a non-successful daemon response.
type StatusError struct {
	Status int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("daemon returned %d", e.Status)
}

// Client calls the daemon HTTP API.
type Client struct {
	http    *http.Client
	baseURL string
}

// New constructs a Client for the daemon at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// StepCount fetches the current day total.
func (c *Client) StepCount(ctx context.Context) (events.StepCount, error) {
	var out events.StepCount
	err := c.do(ctx, http.MethodGet, "/v1/steps", nil, &out)
	return out, err
}

// Register subscribes callbackURL to step updates.
func (c *Client) Register(ctx context.Context, callbackURL string) error {
	return c.do(ctx, http.MethodPost, "/v1/callbacks", map[string]string{"url": callbackURL}, nil)
}

// Unregister removes callbackURL.
func (c *Client) Unregister(ctx context.Context, callbackURL string) error {
	return c.do(ctx, http.MethodDelete, "/v1/callbacks", map[string]string{"url": callbackURL}, nil)
}

// Watch streams step updates to fn until ctx is cancelled or the connection drops.
func (c *Client) Watch(ctx context.Context, fn func(events.StepCountUpdated)) error {
	u, err := url.Parse(c.baseURL + "/v1/steps/stream")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		var update events.StepCountUpdated
		if err := json.Unmarshal(msg, &update); err != nil {
			return fmt.Errorf("decode step update: %w", err)
		}
		fn(update)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var problem struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&problem)
		return &StatusError{Status: resp.StatusCode, Detail: problem.Detail}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
