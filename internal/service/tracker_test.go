package service

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanwatch/internal/domain"
)

func newTestTracker(t *testing.T, macs ...string) (*Tracker, chan Event) {
	t.Helper()
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)
	return NewTracker("test-"+t.Name(), domain.NewSelectionSet(macs...), bus, zerolog.Nop()), events
}

func TestTrackerPublishedReconciles(t *testing.T) {
	tr, events := newTestTracker(t, "AA:01")

	snap := snapshotOf(host("AA:01", "nas", "10.0.0.1", true, true), host("AA:02", "tv", "", true, false))
	tr.Published(nil, snap)

	view := tr.View()
	assert.Equal(t, uint64(1), view.Cycle)
	assert.Same(t, snap, view.Snapshot)
	assert.Equal(t, 1, view.TrackedCount())
	assert.Equal(t, domain.Aggregates{Total: 1, Online: 1, Known: 1}, view.Aggregates)

	e, ok := view.Entity("aa:01")
	require.True(t, ok)
	assert.Equal(t, "nas", e.Name)

	ev := <-events
	assert.Equal(t, EventReconciled, ev.Type)
	assert.Equal(t, tr.Source(), ev.Source)
	diff, ok := ev.Payload.(domain.Diff)
	require.True(t, ok)
	assert.Equal(t, 1, diff.Count(domain.ChangeAdded))
}

func TestTrackerViewsAreImmutable(t *testing.T) {
	tr, _ := newTestTracker(t, "AA:01")
	tr.Published(nil, snapshotOf(host("AA:01", "nas", "10.0.0.1", true, true)))
	before := tr.View()

	tr.Published(before.Snapshot, snapshotOf())
	after := tr.View()

	old, _ := before.Entity("AA:01")
	cur, _ := after.Entity("AA:01")
	assert.Equal(t, domain.PresenceOnline, old.Presence)
	assert.Equal(t, domain.PresenceOffline, cur.Presence)

	entities := after.Entities()
	entities[0].Name = "mutated"
	again, _ := after.Entity("AA:01")
	assert.Equal(t, "nas", again.Name)
}

func TestTrackerFailedKeepsState(t *testing.T) {
	tr, events := newTestTracker(t, "AA:01")
	snap := snapshotOf(host("AA:01", "nas", "10.0.0.1", true, true))
	tr.Published(nil, snap)
	<-events

	tr.Failed(&domain.ConnectError{URL: "http://x", Err: errors.New("timeout")}, 1)

	view := tr.View()
	assert.Same(t, snap, view.Snapshot)
	assert.Equal(t, 1, view.TrackedCount())
	assert.Equal(t, 1, view.ConsecutiveFailures)
	assert.Equal(t, domain.KindConnect, view.LastErrorKind)
	assert.Contains(t, view.LastError, "timeout")
	assert.Equal(t, uint64(1), view.Cycle, "a failure is not a cycle")

	e, _ := view.Entity("AA:01")
	assert.Equal(t, domain.PresenceOnline, e.Presence, "failure never changes presence")

	ev := <-events
	assert.Equal(t, EventPollFailed, ev.Type)
	failure, ok := ev.Payload.(PollFailure)
	require.True(t, ok)
	assert.Equal(t, "connect", failure.Kind)
	assert.Equal(t, 1, failure.ConsecutiveFailures)

	tr.Published(snap, snapshotOf(host("AA:01", "nas", "10.0.0.1", true, true)))
	assert.Equal(t, 0, tr.View().ConsecutiveFailures, "a publish clears failure state")
}

func TestTrackerSelectionChangedBeforeFirstSnapshot(t *testing.T) {
	tr, events := newTestTracker(t)

	tr.SelectionChanged(domain.NewSelectionSet("AA:01"))

	view := tr.View()
	assert.True(t, view.Selection.Has("AA:01"))
	assert.Equal(t, uint64(0), view.Cycle)
	assert.Len(t, events, 0)
}

func TestTrackerSelectionChangedReconcilesImmediately(t *testing.T) {
	tr, events := newTestTracker(t, "AA:01", "AA:02")
	snap := snapshotOf(host("AA:01", "nas", "", true, true), host("AA:02", "tv", "", true, false))
	tr.Published(nil, snap)
	<-events

	tr.Failed(errors.New("boom"), 2)
	<-events

	tr.SelectionChanged(domain.NewSelectionSet("AA:02"))

	view := tr.View()
	assert.Equal(t, 1, view.TrackedCount())
	_, ok := view.Entity("AA:01")
	assert.False(t, ok)
	assert.Equal(t, 1, view.LastDiff.Count(domain.ChangeRemoved))
	assert.Equal(t, 2, view.ConsecutiveFailures, "selection change keeps failure state")
	assert.Same(t, snap, view.Snapshot)

	select {
	case ev := <-events:
		assert.Equal(t, EventReconciled, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected reconciled event")
	}
}
