package callback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"example.com/steptracker/internal/subscriber"
)

// DefaultMaxFailures is the number of consecutive failed deliveries after which a
// webhook is considered gone.
const DefaultMaxFailures = 5

// ErrInvalidURL is returned when a webhook URL is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid callback url")

// DeliveryError represents a non-successful webhook response.
type DeliveryError struct {
	Status int
}

func (e *DeliveryError) Error() string {
	return "step update delivery failed with status " + http.StatusText(e.Status)
}

// WebhookHandle posts step updates as JSON to a URL.
type WebhookHandle struct {
	client      *http.Client
	url         string
	maxFailures int32
	failures    atomic.Int32
}

// URL returns the endpoint the handle posts to.
func (h *WebhookHandle) URL() string {
	return h.url
}

// OnStepUpdate implements subscriber.Handle. A 410 response, or too many consecutive
// failures, reports subscriber.ErrGone.
func (h *WebhookHandle) OnStepUpdate(ctx context.Context, count int64) error {
	err := h.post(ctx, count)
	if err == nil {
		h.failures.Store(0)
		return nil
	}

	var delivery *DeliveryError
	if errors.As(err, &delivery) && delivery.Status == http.StatusGone {
		return fmt.Errorf("%w: %s: %w", subscriber.ErrGone, h.url, err)
	}
	if n := h.failures.Add(1); n >= h.maxFailures {
		return fmt.Errorf("%w: %s after %d consecutive failures: %w", subscriber.ErrGone, h.url, n, err)
	}
	return err
}

func (h *WebhookHandle) post(ctx context.Context, count int64) error {
	body, err := encodeStepCount(count)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &DeliveryError{Status: resp.StatusCode}
	}
	return nil
}

// Webhooks hands out one WebhookHandle per URL, so registering the same URL twice
// yields the same handle. A handle stays in the set until Remove, even after the
// registry prunes it, so a later registration or removal of the URL always finds it.
type Webhooks struct {
	client      *http.Client
	maxFailures int32

	mu      sync.Mutex
	handles map[string]*WebhookHandle
}

// NewWebhooks constructs a Webhooks set with the given per-request timeout and failure budget.
func NewWebhooks(timeout time.Duration, maxFailures int) *Webhooks {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	return &Webhooks{
		client:      &http.Client{Timeout: timeout},
		maxFailures: int32(maxFailures),
		handles:     make(map[string]*WebhookHandle),
	}
}

// Resolve returns the handle for rawURL, creating it if needed. Resolving an
// existing handle clears its failure count.
func (w *Webhooks) Resolve(rawURL string) (*WebhookHandle, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if h, ok := w.handles[normalized]; ok {
		h.failures.Store(0)
		return h, nil
	}
	h := &WebhookHandle{
		client:      w.client,
		url:         normalized,
		maxFailures: w.maxFailures,
	}
	w.handles[normalized] = h
	return h, nil
}

// Remove drops the handle for rawURL from the set and returns it.
func (w *Webhooks) Remove(rawURL string) (*WebhookHandle, bool) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.handles[normalized]
	if ok {
		delete(w.handles, normalized)
	}
	return h, ok
}

// NormalizeURL validates rawURL and returns its canonical form.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	return u.String(), nil
}
