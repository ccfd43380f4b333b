package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"lanwatch/internal/adapter"
	"lanwatch/internal/domain"
	"lanwatch/internal/service"
)

// SourceInfo is the operator summary of one source
type SourceInfo struct {
	adapter.Status
	Cycle      uint64            `json:"cycle"`
	Tracked    int               `json:"tracked"`
	Selected   int               `json:"selected"`
	Aggregates domain.Aggregates `json:"aggregates"`
}

// HostView is a tracked host as exposed to consumers
type HostView struct {
	domain.TrackedEntity
	TrackerID        string `json:"tracker_id"`
	PresenceSensorID string `json:"presence_sensor_id"`
	Manufacturer     string `json:"manufacturer"`
}

func newHostView(e domain.TrackedEntity) HostView {
	return HostView{
		TrackedEntity:    e,
		TrackerID:        e.TrackerID(),
		PresenceSensorID: e.PresenceSensorID(),
		Manufacturer:     e.Manufacturer(),
	}
}

// AggregatesResponse carries the counts of one completed cycle
type AggregatesResponse struct {
	Source string `json:"source"`
	Cycle  uint64 `json:"cycle"`
	domain.Aggregates
}

// DiscoveredHost is one entry of the full snapshot, labelled for selection
type DiscoveredHost struct {
	domain.Host
	Label        string `json:"label"`
	Manufacturer string `json:"manufacturer"`
	Selected     bool   `json:"selected"`
}

// DiscoveredResponse lists every host of the current snapshot
type DiscoveredResponse struct {
	Source   string           `json:"source"`
	PolledAt *time.Time       `json:"polled_at,omitempty"`
	Hosts    []DiscoveredHost `json:"hosts"`
}

// SelectionRequest replaces the device selection of a source
type SelectionRequest struct {
	Devices []string `json:"devices"`
}

// SelectionResponse reports a source's selection
type SelectionResponse struct {
	Source    string   `json:"source"`
	Devices   []string `json:"devices"`
	Persisted bool     `json:"persisted,omitempty"`
}

func sourceInfo(c *adapter.Coordinator, t *service.Tracker) SourceInfo {
	view := t.View()
	return SourceInfo{
		Status:     c.Status(),
		Cycle:      view.Cycle,
		Tracked:    view.TrackedCount(),
		Selected:   len(view.Selection),
		Aggregates: view.Aggregates,
	}
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"status":  "ok",
		"sources": len(h.registry.List()),
	}, http.StatusOK)
}

// ListSources returns every source with its poll state
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	infos := make([]SourceInfo, 0)
	for _, c := range h.registry.List() {
		t, ok := h.trackers[c.Name()]
		if !ok {
			continue
		}
		infos = append(infos, sourceInfo(c, t))
	}
	h.writeJSON(w, infos, http.StatusOK)
}

// GetSource returns one source with its poll state
func (h *Handler) GetSource(w http.ResponseWriter, r *http.Request) {
	src, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, sourceInfo(src.coordinator, src.tracker), http.StatusOK)
}

// GetAggregates returns the counts over the selected hosts
func (h *Handler) GetAggregates(w http.ResponseWriter, r *http.Request) {
	src, ok := h.lookup(w, r)
	if !ok {
		return
	}
	view := src.tracker.View()
	h.writeJSON(w, AggregatesResponse{
		Source:     view.Source,
		Cycle:      view.Cycle,
		Aggregates: view.Aggregates,
	}, http.StatusOK)
}

// ListHosts returns the tracked hosts sorted by MAC
func (h *Handler) ListHosts(w http.ResponseWriter, r *http.Request) {
	src, ok := h.lookup(w, r)
	if !ok {
		return
	}
	entities := src.tracker.View().Entities()
	hosts := make([]HostView, 0, len(entities))
	for _, e := range entities {
		hosts = append(hosts, newHostView(e))
	}
	h.writeJSON(w, hosts, http.StatusOK)
}

// GetHost returns one tracked host
func (h *Handler) GetHost(w http.ResponseWriter, r *http.Request) {
	src, ok := h.lookup(w, r)
	if !ok {
		return
	}
	mac := chi.URLParam(r, "mac")
	e, found := src.tracker.View().Entity(mac)
	if !found {
		h.writeError(w, "Not found", fmt.Sprintf("host %s is not tracked", domain.NormalizeMAC(mac)), http.StatusNotFound)
		return
	}
	h.writeJSON(w, newHostView(e), http.StatusOK)
}

// ListDiscovered returns every host of the current snapshot, selected or not
func (h *Handler) ListDiscovered(w http.ResponseWriter, r *http.Request) {
	src, ok := h.lookup(w, r)
	if !ok {
		return
	}
	view := src.tracker.View()

	resp := DiscoveredResponse{Source: view.Source, Hosts: make([]DiscoveredHost, 0, view.Snapshot.Len())}
	if view.Snapshot != nil {
		polledAt := view.Snapshot.PolledAt()
		resp.PolledAt = &polledAt
	}
	for _, host := range view.Snapshot.Hosts() {
		resp.Hosts = append(resp.Hosts, DiscoveredHost{
			Host:         host,
			Label:        fmt.Sprintf("%s (%s)", domain.DisplayName(host.Name, host.MAC), host.MAC),
			Manufacturer: host.Manufacturer(),
			Selected:     view.Selection.Has(host.MAC),
		})
	}
	h.writeJSON(w, resp, http.StatusOK)
}

// GetSelection returns the selection in effect
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	src, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, SelectionResponse{
		Source:  src.coordinator.Name(),
		Devices: src.tracker.View().Selection.Sorted(),
	}, http.StatusOK)
}

// PutSelection replaces the selection. It is applied against the current
// snapshot without fetching.
func (h *Handler) PutSelection(w http.ResponseWriter, r *http.Request) {
	src, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Devices == nil {
		h.writeError(w, "Invalid selection", "devices is required", http.StatusBadRequest)
		return
	}

	selection := domain.NewSelectionSet(req.Devices...)
	if err := src.coordinator.UpdateSelection(r.Context(), selection); err != nil {
		h.handleError(w, err)
		return
	}

	resp := SelectionResponse{
		Source:  src.coordinator.Name(),
		Devices: selection.Sorted(),
	}
	if h.saver != nil {
		// The selection is live even if the write fails
		if err := h.saver.SaveSelection(resp.Source, resp.Devices); err != nil {
			h.log.Warn().Err(err).Str("source", resp.Source).Msg("Failed to persist selection")
		} else {
			resp.Persisted = true
		}
	}

	h.log.Info().Str("source", resp.Source).Int("devices", len(selection)).Bool("persisted", resp.Persisted).Msg("Selection updated via API")
	h.writeJSON(w, resp, http.StatusAccepted)
}

// TriggerPoll starts a poll now, or answers 409 when one is in flight
func (h *Handler) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	src, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := src.coordinator.TriggerPoll(r.Context()); err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, map[string]string{
		"status": "polling",
		"source": src.coordinator.Name(),
	}, http.StatusAccepted)
}
