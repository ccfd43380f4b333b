package hub

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanwatch/internal/domain"
	"lanwatch/internal/service"
)

func testDiff() domain.Diff {
	e := &domain.TrackedEntity{MAC: "AA:01", Name: "nas", Presence: domain.PresenceOnline}
	gone := &domain.TrackedEntity{MAC: "AA:02", Name: "tv", Presence: domain.PresenceOffline}
	return domain.Diff{
		Changes: []domain.Change{
			{Kind: domain.ChangeAdded, MAC: "AA:01", Entity: e},
			{Kind: domain.ChangeWentOffline, MAC: "AA:02", Entity: gone},
		},
		Aggregates: domain.Aggregates{Total: 1, Online: 1, Known: 1},
	}
}

func TestTranslate(t *testing.T) {
	msgs := Translate(service.NewEvent(service.EventReconciled, "home", testDiff()))
	require.Len(t, msgs, 3)

	var types []string
	for _, m := range msgs {
		types = append(types, m.Type)
		assert.Equal(t, "home", m.Source)
		assert.NotEmpty(t, m.ID)
	}
	assert.Equal(t, []string{MessageHostAdded, MessageHostWentOffline, MessageAggregatesUpdated}, types)
	assert.Equal(t, domain.Aggregates{Total: 1, Online: 1, Known: 1}, msgs[2].Data)

	failed := Translate(service.NewEvent(service.EventPollFailed, "home", service.PollFailure{Kind: "connect"}))
	require.Len(t, failed, 1)
	assert.Equal(t, MessagePollFailed, failed[0].Type)

	assert.Empty(t, Translate(service.Event{Type: "unknown"}))
	assert.Empty(t, Translate(service.Event{Type: service.EventReconciled, Payload: "not a diff"}))
}

func TestHubStreamsBusEvents(t *testing.T) {
	bus := service.NewEventBus()
	h := New(zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx, bus)

	srv := httptest.NewServer(h)
	defer srv.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus.Publish(service.NewEvent(service.EventReconciled, "home", testDiff()))

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	var events []string
	timeout := time.After(3 * time.Second)
	for len(events) < 3 {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			if name, found := strings.CutPrefix(line, "event: "); found {
				events = append(events, name)
			}
			if data, found := strings.CutPrefix(line, "data: "); found {
				assert.Contains(t, data, `"source":"home"`)
			}
		case <-timeout:
			t.Fatalf("timed out, got events %v", events)
		}
	}
	assert.Equal(t, []string{MessageHostAdded, MessageHostWentOffline, MessageAggregatesUpdated}, events)
}

func TestHubShutdownClosesClients(t *testing.T) {
	h := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx, nil)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()

	done := make(chan error, 1)
	go func() {
		buf := make([]byte, 1024)
		for {
			if _, err := resp.Body.Read(buf); err != nil {
				done <- err
				return
			}
		}
	}()

	select {
	case err := <-done:
		assert.True(t, err != nil && !errors.Is(err, context.DeadlineExceeded))
	case <-time.After(3 * time.Second):
		t.Fatal("stream not closed on shutdown")
	}
	assert.Equal(t, 0, h.ClientCount())
}
