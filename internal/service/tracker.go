package service

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"lanwatch/internal/domain"
	"lanwatch/internal/metrics"
)

// View is an immutable picture of one source after a completed cycle.
// Readers always get either the view before a cycle or the one after it.
type View struct {
	Source     string
	Snapshot   *domain.Snapshot
	Selection  domain.SelectionSet
	Aggregates domain.Aggregates
	LastDiff   domain.Diff
	Cycle      uint64

	ConsecutiveFailures int
	LastErrorKind       domain.ErrorKind
	LastError           string
	LastFailure         time.Time

	tracked map[string]*domain.TrackedEntity
}

// Entities returns copies of the tracked entities sorted by MAC
func (v *View) Entities() []domain.TrackedEntity {
	out := make([]domain.TrackedEntity, 0, len(v.tracked))
	for _, mac := range sortedKeys(v.tracked) {
		out = append(out, *v.tracked[mac])
	}
	return out
}

// Entity returns a copy of one tracked entity
func (v *View) Entity(mac string) (domain.TrackedEntity, bool) {
	e, ok := v.tracked[domain.NormalizeMAC(mac)]
	if !ok {
		return domain.TrackedEntity{}, false
	}
	return *e, true
}

// TrackedCount returns how many hosts are tracked
func (v *View) TrackedCount() int {
	return len(v.tracked)
}

// Tracker owns the current snapshot and tracked set of one source. Its
// mutating methods must only be called from the source's poll loop; View may
// be called from anywhere.
type Tracker struct {
	source     string
	bus        *EventBus
	log        zerolog.Logger
	reconciler *Reconciler

	snapshot  *domain.Snapshot
	selection domain.SelectionSet
	view      atomic.Pointer[View]
}

// NewTracker creates a tracker for source with an initial selection
func NewTracker(source string, selection domain.SelectionSet, bus *EventBus, log zerolog.Logger) *Tracker {
	if selection == nil {
		selection = domain.NewSelectionSet()
	}
	t := &Tracker{
		source:     source,
		bus:        bus,
		log:        log.With().Str("component", "tracker").Str("source", source).Logger(),
		reconciler: NewReconciler(),
		selection:  selection.Clone(),
	}
	t.view.Store(&View{
		Source:    source,
		Selection: selection.Clone(),
		tracked:   map[string]*domain.TrackedEntity{},
	})
	return t
}

// View returns the latest published view
func (t *Tracker) View() *View {
	return t.view.Load()
}

// Source returns the source name
func (t *Tracker) Source() string {
	return t.source
}

// Published swaps in a new snapshot and reconciles against it
func (t *Tracker) Published(old, snap *domain.Snapshot) {
	t.log.Debug().
		Int("previous_hosts", old.Len()).
		Int("hosts", snap.Len()).
		Time("polled_at", snap.PolledAt()).
		Msg("Snapshot published")
	t.snapshot = snap
	t.reconcile(false)
}

// Failed records a failed poll. Snapshot and tracked state stay as they were.
func (t *Tracker) Failed(err error, consecutive int) {
	prev := t.View()
	next := *prev
	next.ConsecutiveFailures = consecutive
	next.LastErrorKind = domain.Classify(err)
	next.LastError = err.Error()
	next.LastFailure = time.Now()
	t.view.Store(&next)

	if t.bus != nil {
		t.bus.Publish(NewEvent(EventPollFailed, t.source, PollFailure{
			Kind:                string(next.LastErrorKind),
			Error:               next.LastError,
			ConsecutiveFailures: consecutive,
		}))
	}
}

// SelectionChanged replaces the selection and reconciles against the current
// snapshot right away. Before the first snapshot it is only recorded.
func (t *Tracker) SelectionChanged(selection domain.SelectionSet) {
	t.selection = selection.Clone()
	if t.snapshot == nil {
		prev := t.View()
		next := *prev
		next.Selection = t.selection.Clone()
		t.view.Store(&next)
		return
	}
	t.reconcile(true)
}

func (t *Tracker) reconcile(selectionOnly bool) {
	result := t.reconciler.Reconcile(t.snapshot, t.selection)
	prev := t.View()

	next := &View{
		Source:     t.source,
		Snapshot:   t.snapshot,
		Selection:  t.selection.Clone(),
		Aggregates: result.Diff.Aggregates,
		LastDiff:   result.Diff,
		Cycle:      prev.Cycle + 1,
		tracked:    result.Tracked,
	}
	if selectionOnly {
		next.ConsecutiveFailures = prev.ConsecutiveFailures
		next.LastErrorKind = prev.LastErrorKind
		next.LastError = prev.LastError
		next.LastFailure = prev.LastFailure
	}
	t.view.Store(next)

	t.report(result)
}

func (t *Tracker) report(result ReconcileResult) {
	agg := result.Diff.Aggregates
	metrics.SetAggregates(t.source, agg.Total, agg.Online, agg.Offline, agg.Known, agg.Unknown)

	if !result.Selection.Empty() {
		t.log.Info().
			Strs("selected", result.Selection.Added).
			Strs("deselected", result.Selection.Removed).
			Msg("Selection changed")
	}

	for _, c := range result.Diff.Changes {
		metrics.TrackedChanges.WithLabelValues(t.source, string(c.Kind)).Inc()
		ev := t.log.Info()
		if c.Kind == domain.ChangeUpdated {
			ev = t.log.Debug()
		}
		ev.Str("mac", c.MAC).
			Str("name", c.Entity.Name).
			Str("presence", string(c.Entity.Presence)).
			Msgf("Host %s", c.Kind)
	}

	if t.bus != nil {
		t.bus.Publish(NewEvent(EventReconciled, t.source, result.Diff))
	}
}
