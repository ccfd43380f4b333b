package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"lanwatch/internal/adapter"
	"lanwatch/internal/domain"
	"lanwatch/internal/service"
)

// SelectionSaver persists a source's selection beyond the process lifetime
type SelectionSaver interface {
	SaveSelection(source string, devices []string) error
}

// Handler serves the per-source API
type Handler struct {
	registry *adapter.Registry
	trackers map[string]*service.Tracker
	saver    SelectionSaver
	log      zerolog.Logger
}

// New creates a handler. trackers maps source names to the trackers their
// coordinators feed.
func New(registry *adapter.Registry, trackers map[string]*service.Tracker, log zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		trackers: trackers,
		log:      log.With().Str("component", "api").Logger(),
	}
}

// WithSelectionSaver makes PUT selection also persist the new selection
func (h *Handler) WithSelectionSaver(s SelectionSaver) *Handler {
	h.saver = s
	return h
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type source struct {
	coordinator *adapter.Coordinator
	tracker     *service.Tracker
}

// lookup resolves the {source} URL parameter, writing a 404 when unknown
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (source, bool) {
	name := chi.URLParam(r, "source")

	c, err := h.registry.Get(name)
	if err != nil {
		h.handleError(w, err)
		return source{}, false
	}
	t, ok := h.trackers[name]
	if !ok {
		h.handleError(w, fmt.Errorf("%w: %s has no tracker", domain.ErrSourceNotFound, name))
		return source{}, false
	}
	return source{coordinator: c, tracker: t}, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, msg, details string, statusCode int) {
	h.writeJSON(w, ErrorResponse{Error: msg, Details: details}, statusCode)
}

// handleError converts domain errors to HTTP errors
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSourceNotFound):
		h.writeError(w, "Not found", err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrPollInProgress):
		h.writeError(w, "Poll in progress", err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrNotStarted):
		h.writeError(w, "Source not running", err.Error(), http.StatusServiceUnavailable)
	default:
		h.log.Error().Err(err).Msg("Request failed")
		h.writeError(w, "Internal error", err.Error(), http.StatusInternalServerError)
	}
}
