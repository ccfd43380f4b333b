package service

import (
	"sort"
	"time"

	"lanwatch/internal/domain"
)

// ReconcileResult is the outcome of one reconcile cycle
type ReconcileResult struct {
	// Tracked is the new tracked set. Entities that changed are fresh copies;
	// unchanged ones are shared with the previous set and must not be mutated.
	Tracked   map[string]*domain.TrackedEntity
	Diff      domain.Diff
	Selection SelectionChange
}

// Reconciler folds snapshots into the tracked set of selected hosts
type Reconciler struct {
	filter  *SelectionFilter
	tracked map[string]*domain.TrackedEntity
	now     func() time.Time
}

// NewReconciler creates a reconciler with nothing tracked
func NewReconciler() *Reconciler {
	return &Reconciler{
		filter:  NewSelectionFilter(),
		tracked: make(map[string]*domain.TrackedEntity),
		now:     time.Now,
	}
}

// Reconcile applies snap under selection and returns the new tracked set and
// its diff. The previous tracked set is left untouched.
func (r *Reconciler) Reconcile(snap *domain.Snapshot, selection domain.SelectionSet) ReconcileResult {
	now := r.now()
	change := r.filter.Apply(selection)

	next := make(map[string]*domain.TrackedEntity, len(r.tracked))
	for mac, e := range r.tracked {
		next[mac] = e
	}

	diff := domain.Diff{At: now}

	// Deselected hosts are torn down even if still present and online.
	// Anything tracked outside the selection goes too, so the tracked set
	// can never hold an unselected MAC.
	for _, mac := range sortedKeys(next) {
		if selection.Has(mac) {
			continue
		}
		diff.Changes = append(diff.Changes, domain.Change{
			Kind:   domain.ChangeRemoved,
			MAC:    mac,
			Entity: next[mac],
		})
		delete(next, mac)
	}

	for _, mac := range selection.Sorted() {
		host, present := snap.Get(mac)
		existing, tracked := next[mac]

		switch {
		case present && !tracked:
			e := domain.NewTrackedEntity(host, now)
			next[mac] = e
			diff.Changes = append(diff.Changes, domain.Change{Kind: domain.ChangeAdded, MAC: mac, Entity: e})

		case present && tracked:
			e, changed := applyHost(existing, host, now)
			next[mac] = e
			if changed {
				diff.Changes = append(diff.Changes, domain.Change{Kind: domain.ChangeUpdated, MAC: mac, Entity: e})
			}

		case !present && tracked:
			if existing.Online() {
				e := existing.Clone()
				e.Presence = domain.PresenceOffline
				e.UpdatedAt = now
				next[mac] = e
				diff.Changes = append(diff.Changes, domain.Change{Kind: domain.ChangeWentOffline, MAC: mac, Entity: e})
			} else {
				diff.StillAbsent = append(diff.StillAbsent, mac)
			}
		}
	}

	diff.Aggregates = domain.ComputeAggregates(snap, selection)
	r.tracked = next

	return ReconcileResult{
		Tracked:   next,
		Diff:      diff,
		Selection: change,
	}
}

// Tracked returns the current tracked set. Callers must not mutate entities.
func (r *Reconciler) Tracked() map[string]*domain.TrackedEntity {
	out := make(map[string]*domain.TrackedEntity, len(r.tracked))
	for mac, e := range r.tracked {
		out[mac] = e
	}
	return out
}

// applyHost returns an updated copy of e when h changes anything. The
// scanner moves last_seen on every scan, so a new last_seen alone is carried
// over without counting as a change.
func applyHost(e *domain.TrackedEntity, h domain.Host, now time.Time) (*domain.TrackedEntity, bool) {
	n := e.Clone()
	n.LastSeen = h.LastSeen
	n.ID = h.ID
	n.IP = h.IP
	n.Vendor = h.Vendor
	n.Iface = h.Iface
	n.DNS = h.DNS
	n.Known = h.Known
	n.Presence = domain.PresenceOf(h.Online)

	// A name only replaces the current one when it is a real name; the MAC
	// placeholder never overwrites a name we already have.
	if h.Name != "" && h.Name != n.Name && h.Name != h.MAC {
		n.Name = h.Name
	}

	if sameTrackedFields(e, n) {
		if sameTime(e.LastSeen, n.LastSeen) {
			return e, false
		}
		return n, false
	}
	n.UpdatedAt = now
	return n, true
}

func sameTrackedFields(a, b *domain.TrackedEntity) bool {
	return a.Name == b.Name && a.ID == b.ID && a.IP == b.IP && a.Vendor == b.Vendor &&
		a.Iface == b.Iface && a.DNS == b.DNS && a.Known == b.Known && a.Presence == b.Presence
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func sortedKeys(m map[string]*domain.TrackedEntity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
