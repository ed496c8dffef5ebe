// Package api exposes the step service over HTTP and WebSocket.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"example.com/steptracker/internal/callback"
	"example.com/steptracker/internal/events"
	"example.com/steptracker/internal/service"
	"example.com/steptracker/internal/settings"
	"example.com/steptracker/internal/tracker"
)

// SettingsSource exposes the persisted preferences.
type SettingsSource interface {
	Values() settings.Values
}

// ResidentState reports whether resident mode is active right now.
type ResidentState interface {
	Resident() bool
}

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithSettings exposes settings on GET /v1/settings.
func WithSettings(src SettingsSource, state ResidentState) Option {
	return func(h *Handler) {
		h.settings = src
		h.resident = state
	}
}

// WithStreamWriteTimeout bounds each WebSocket write.
func WithStreamWriteTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.streamWriteTimeout = d
	}
}

// WithLogger overrides the handler logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// Handler coordinates HTTP requests with the step service.
type Handler struct {
	service            *service.StepService
	webhooks           *callback.Webhooks
	settings           SettingsSource
	resident           ResidentState
	upgrader           websocket.Upgrader
	streamWriteTimeout time.Duration
	logger             *log.Logger

	// callbacksMu serializes webhook resolve+register against remove+unregister.
	callbacksMu sync.Mutex

	mu      sync.Mutex
	streams map[*callback.StreamHandle]struct{}
}

// NewHandler builds a Handler.
func NewHandler(svc *service.StepService, webhooks *callback.Webhooks, opts ...Option) *Handler {
	h := &Handler{
		service:            svc,
		webhooks:           webhooks,
		streamWriteTimeout: callback.DefaultTimeout,
		logger:             log.New(log.Writer(), "[api] ", log.LstdFlags),
		streams:            make(map[*callback.StreamHandle]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/steps", h.steps)
	mux.HandleFunc("/v1/steps/stream", h.stream)
	mux.HandleFunc("/v1/callbacks", h.callbacks)
	mux.HandleFunc("/v1/settings", h.currentSettings)
	mux.HandleFunc("/healthz", healthz)
}

// CloseStreams disconnects every open WebSocket stream. Hijacked connections are not
// covered by http.Server.Shutdown, so callers hook this into RegisterOnShutdown.
func (h *Handler) CloseStreams() {
	h.mu.Lock()
	streams := make([]*callback.StreamHandle, 0, len(h.streams))
	for s := range h.streams {
		streams = append(streams, s)
	}
	h.mu.Unlock()

	for _, s := range streams {
		_ = s.Close()
	}
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) steps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	count := h.service.StepCount()
	writeJSON(w, http.StatusOK, events.StepCount{
		StepCount:   count,
		Initialized: count != tracker.Uninitialized,
	})
}

func (h *Handler) callbacks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.registerCallback(w, r)
	case http.MethodDelete:
		h.unregisterCallback(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) registerCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	h.callbacksMu.Lock()
	handle, err := h.webhooks.Resolve(req.URL)
	if err == nil {
		h.service.RegisterCallback(handle)
	}
	h.callbacksMu.Unlock()
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CallbackResponse{
		URL:         handle.URL(),
		Subscribers: h.service.CallbackCount(),
	})
}

func (h *Handler) unregisterCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	normalized, err := callback.NormalizeURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	h.callbacksMu.Lock()
	if handle, ok := h.webhooks.Remove(normalized); ok {
		h.service.UnregisterCallback(handle)
	}
	h.callbacksMu.Unlock()

	writeJSON(w, http.StatusOK, CallbackResponse{
		URL:         normalized,
		Subscribers: h.service.CallbackCount(),
	})
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if !websocket.IsWebSocketUpgrade(r) {
		writeError(w, http.StatusUpgradeRequired, "upgrade_required", "websocket upgrade required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	handle := callback.NewStreamHandle(conn, h.streamWriteTimeout)
	h.track(handle, true)
	h.service.RegisterCallback(handle)
	defer func() {
		h.service.UnregisterCallback(handle)
		h.track(handle, false)
	}()

	handle.ReadUntilClosed()
}

func (h *Handler) track(s *callback.StreamHandle, open bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if open {
		h.streams[s] = struct{}{}
		return
	}
	delete(h.streams, s)
}

func (h *Handler) currentSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if h.settings == nil {
		writeError(w, http.StatusNotFound, "not_found", "settings are not configured")
		return
	}

	resp := SettingsResponse{Values: h.settings.Values()}
	if h.resident != nil {
		resp.ResidentActive = h.resident.Resident()
	}
	writeJSON(w, http.StatusOK, resp)
}

// CallbackRequest is the payload for POST and DELETE /v1/callbacks.
type CallbackRequest struct {
	URL string `json:"url"`
}

// CallbackResponse describes the registration outcome.
type CallbackResponse struct {
	URL         string `json:"url"`
	Subscribers int    `json:"subscribers"`
}

// SettingsResponse reports persisted settings and the live resident flag.
type SettingsResponse struct {
	settings.Values
	ResidentActive bool `json:"resident_active"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
