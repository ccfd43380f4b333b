package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lanwatch/internal/domain"
	"lanwatch/internal/service"
)

// SSE event names
const (
	MessageHostAdded         = "host_added"
	MessageHostUpdated       = "host_updated"
	MessageHostWentOffline   = "host_went_offline"
	MessageHostRemoved       = "host_removed"
	MessageAggregatesUpdated = "aggregates_updated"
	MessagePollFailed        = "poll_failed"
)

var changeMessages = map[domain.ChangeKind]string{
	domain.ChangeAdded:       MessageHostAdded,
	domain.ChangeUpdated:     MessageHostUpdated,
	domain.ChangeWentOffline: MessageHostWentOffline,
	domain.ChangeRemoved:     MessageHostRemoved,
}

// Message is one SSE frame
type Message struct {
	ID     string      `json:"id"`
	Type   string      `json:"type"`
	Source string      `json:"source"`
	Time   time.Time   `json:"time"`
	Data   interface{} `json:"data,omitempty"`
}

// Translate expands a bus event into SSE messages. A reconcile cycle yields
// one message per host change followed by the new aggregate counts.
func Translate(ev service.Event) []Message {
	msg := func(typ string, data interface{}) Message {
		return Message{ID: uuid.NewString(), Type: typ, Source: ev.Source, Time: ev.Time, Data: data}
	}

	switch ev.Type {
	case service.EventReconciled:
		diff, ok := ev.Payload.(domain.Diff)
		if !ok {
			return nil
		}
		out := make([]Message, 0, len(diff.Changes)+1)
		for _, c := range diff.Changes {
			out = append(out, msg(changeMessages[c.Kind], c.Entity))
		}
		return append(out, msg(MessageAggregatesUpdated, diff.Aggregates))

	case service.EventPollFailed:
		return []Message{msg(MessagePollFailed, ev.Payload)}
	}
	return nil
}

// Client represents a connected SSE client
type Client struct {
	id     string
	events chan []byte
}

// Hub manages SSE client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	keepalive  time.Duration
	log        zerolog.Logger
}

// New creates a new Hub
func New(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		keepalive:  30 * time.Second,
		log:        log.With().Str("component", "hub").Logger(),
	}
}

// Run starts the hub's event loop and forwards bus events until ctx is done
func (h *Hub) Run(ctx context.Context, bus *service.EventBus) {
	defer close(h.done)

	events := make(chan service.Event, 256)
	if bus != nil {
		bus.Subscribe(events)
		defer bus.Unsubscribe(events)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Str("client", client.id).Int("total", total).Msg("SSE client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Str("client", client.id).Int("total", total).Msg("SSE client disconnected")

		case ev := <-events:
			for _, m := range Translate(ev) {
				h.send(m)
			}
		}
	}
}

func (h *Hub) send(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.Error().Err(err).Str("type", m.Type).Msg("Failed to marshal event")
		return
	}

	frame := []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", m.ID, m.Type, data))

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.events <- frame:
		default:
			// Client is slow, skip this message
			h.log.Warn().Str("client", client.id).Str("type", m.Type).Msg("SSE client is slow, skipping message")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := &Client{
		id:     uuid.NewString(),
		events: make(chan []byte, 64),
	}

	select {
	case h.register <- client:
	case <-h.done:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	case <-r.Context().Done():
		return
	}

	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
