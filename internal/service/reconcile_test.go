package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lanwatch/internal/domain"
)

func snapshotOf(hosts ...domain.Host) *domain.Snapshot {
	return domain.NewSnapshot(time.Now(), hosts)
}

func host(mac, name, ip string, online, known bool) domain.Host {
	return domain.Host{
		MAC:    mac,
		Name:   domain.DisplayName(name, mac),
		IP:     ip,
		Vendor: "Acme",
		Online: online,
		Known:  known,
	}
}

func TestReconcileAddsSelectedHostsOnly(t *testing.T) {
	r := NewReconciler()
	snap := snapshotOf(
		host("AA:01", "nas", "10.0.0.1", true, true),
		host("AA:02", "tv", "10.0.0.2", false, false),
	)

	res := r.Reconcile(snap, domain.NewSelectionSet("AA:01", "AA:99"))

	require.Len(t, res.Diff.Changes, 1)
	assert.Equal(t, domain.ChangeAdded, res.Diff.Changes[0].Kind)
	assert.Equal(t, "AA:01", res.Diff.Changes[0].MAC)
	assert.Len(t, res.Tracked, 1)
	assert.Equal(t, domain.PresenceOnline, res.Tracked["AA:01"].Presence)
	assert.Equal(t, []string{"AA:01", "AA:99"}, res.Selection.Added)
	assert.Equal(t, domain.Aggregates{Total: 1, Online: 1, Offline: 0, Known: 1, Unknown: 0}, res.Diff.Aggregates)
}

func TestReconcileUpdatesOnlyOnChange(t *testing.T) {
	r := NewReconciler()
	sel := domain.NewSelectionSet("AA:01")

	r.Reconcile(snapshotOf(host("AA:01", "nas", "10.0.0.1", true, true)), sel)

	res := r.Reconcile(snapshotOf(host("AA:01", "nas", "10.0.0.1", true, true)), sel)
	assert.True(t, res.Diff.Empty(), "identical host yields no change")

	res = r.Reconcile(snapshotOf(host("AA:01", "nas", "10.0.0.7", false, true)), sel)
	require.Len(t, res.Diff.Changes, 1)
	assert.Equal(t, domain.ChangeUpdated, res.Diff.Changes[0].Kind)
	assert.Equal(t, "10.0.0.7", res.Tracked["AA:01"].IP)
	assert.Equal(t, domain.PresenceOffline, res.Tracked["AA:01"].Presence, "presence follows the online flag")
}

func TestReconcileAbsentHostGoesOfflineAndKeepsFields(t *testing.T) {
	r := NewReconciler()
	sel := domain.NewSelectionSet("AA:01")

	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := host("AA:01", "nas", "10.0.0.1", true, true)
	h.LastSeen = &seen

	first := r.Reconcile(snapshotOf(h), sel)
	before := *first.Tracked["AA:01"]
	require.NotNil(t, before.LastSeen)

	res := r.Reconcile(snapshotOf(), sel)
	require.Len(t, res.Diff.Changes, 1)
	assert.Equal(t, domain.ChangeWentOffline, res.Diff.Changes[0].Kind)

	after := res.Tracked["AA:01"]
	assert.Equal(t, domain.PresenceOffline, after.Presence)
	assert.Equal(t, before.IP, after.IP)
	assert.Equal(t, before.Known, after.Known)
	assert.Equal(t, before.Vendor, after.Vendor)
	assert.Equal(t, before.Name, after.Name)
	require.NotNil(t, after.LastSeen)
	assert.True(t, seen.Equal(*after.LastSeen), "last seen is kept while absent")

	assert.Equal(t, domain.PresenceOnline, first.Tracked["AA:01"].Presence, "previous tracked set is not mutated")

	res = r.Reconcile(snapshotOf(), sel)
	assert.True(t, res.Diff.Empty(), "already offline host emits nothing")
	assert.Equal(t, []string{"AA:01"}, res.Diff.StillAbsent)
	assert.Len(t, res.Tracked, 1, "absence never deletes")
	assert.Equal(t, domain.Aggregates{}, res.Diff.Aggregates)
}

func TestReconcileLastSeenAloneIsNotAnUpdate(t *testing.T) {
	r := NewReconciler()
	sel := domain.NewSelectionSet("AA:01")

	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	h := host("AA:01", "nas", "10.0.0.1", true, true)
	h.LastSeen = &t1
	r.Reconcile(snapshotOf(h), sel)

	h.LastSeen = &t2
	res := r.Reconcile(snapshotOf(h), sel)
	assert.True(t, res.Diff.Empty())
	require.NotNil(t, res.Tracked["AA:01"].LastSeen)
	assert.True(t, t2.Equal(*res.Tracked["AA:01"].LastSeen))

	h.IP = "10.0.0.9"
	res = r.Reconcile(snapshotOf(h), sel)
	require.Len(t, res.Diff.Changes, 1)
	assert.Equal(t, domain.ChangeUpdated, res.Diff.Changes[0].Kind)
}

func TestReconcileOfflineHostAbsentEmitsNoWentOffline(t *testing.T) {
	r := NewReconciler()
	sel := domain.NewSelectionSet("AA:01")

	r.Reconcile(snapshotOf(host("AA:01", "nas", "10.0.0.1", false, true)), sel)
	res := r.Reconcile(snapshotOf(), sel)

	assert.Equal(t, 0, res.Diff.Count(domain.ChangeWentOffline))
	assert.Equal(t, domain.PresenceOffline, res.Tracked["AA:01"].Presence)
}

func TestReconcileDeselectionTearsDownOnlineHost(t *testing.T) {
	r := NewReconciler()
	snap := snapshotOf(
		host("AA:01", "nas", "10.0.0.1", true, true),
		host("AA:02", "tv", "10.0.0.2", true, false),
	)

	r.Reconcile(snap, domain.NewSelectionSet("AA:01", "AA:02"))
	res := r.Reconcile(snap, domain.NewSelectionSet("AA:02"))

	require.Len(t, res.Diff.Changes, 1)
	assert.Equal(t, domain.ChangeRemoved, res.Diff.Changes[0].Kind)
	assert.Equal(t, "AA:01", res.Diff.Changes[0].MAC)
	assert.Equal(t, "nas", res.Diff.Changes[0].Entity.Name, "removal carries last state")
	assert.NotContains(t, res.Tracked, "AA:01")
	assert.Equal(t, []string{"AA:01"}, res.Selection.Removed)
	assert.Equal(t, 1, res.Diff.Aggregates.Total)
}

func TestReconcileReselectionCreatesFreshEntity(t *testing.T) {
	r := NewReconciler()
	snap := snapshotOf(host("AA:01", "nas", "10.0.0.1", true, true))

	r.Reconcile(snap, domain.NewSelectionSet("AA:01"))
	r.Reconcile(snap, domain.NewSelectionSet())
	res := r.Reconcile(snap, domain.NewSelectionSet("AA:01"))

	require.Len(t, res.Diff.Changes, 1)
	assert.Equal(t, domain.ChangeAdded, res.Diff.Changes[0].Kind)
}

func TestReconcileRenamePolicy(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		next    string
		want    string
	}{
		{"real rename applies", "nas", "storage", "storage"},
		{"placeholder does not overwrite", "nas", "", "nas"},
		{"unknown does not overwrite", "nas", "unknown", "nas"},
		{"mac placeholder replaced by real name", "", "nas", "nas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler()
			sel := domain.NewSelectionSet("AA:01")
			r.Reconcile(snapshotOf(host("AA:01", tt.initial, "10.0.0.1", true, true)), sel)
			res := r.Reconcile(snapshotOf(host("AA:01", tt.next, "10.0.0.1", true, true)), sel)
			assert.Equal(t, tt.want, res.Tracked["AA:01"].Name)
		})
	}
}

func TestReconcileIsAFold(t *testing.T) {
	sel := domain.NewSelectionSet("AA:01", "AA:02", "AA:03")
	s1 := snapshotOf(
		host("AA:01", "nas", "10.0.0.1", true, true),
		host("AA:02", "tv", "10.0.0.2", true, false),
	)
	s2 := snapshotOf(
		host("AA:02", "tv", "10.0.0.20", false, true),
		host("AA:03", "phone", "10.0.0.3", true, false),
	)

	seq := NewReconciler()
	seq.Reconcile(s1, sel)
	got := seq.Reconcile(s2, sel).Tracked

	// Expected: last write wins per MAC; hosts seen only in s1 keep s1 fields offline.
	direct := NewReconciler().Reconcile(s2, sel).Tracked
	require.Len(t, got, 3)

	for _, mac := range []string{"AA:02", "AA:03"} {
		assert.True(t, sameTrackedFields(direct[mac], got[mac]), "mac %s", mac)
	}

	fromS1 := NewReconciler().Reconcile(s1, sel).Tracked["AA:01"].Clone()
	fromS1.Presence = domain.PresenceOffline
	assert.True(t, sameTrackedFields(fromS1, got["AA:01"]))

	again := NewReconciler()
	again.Reconcile(s1, sel)
	assert.Equal(t, len(got), len(again.Reconcile(s2, sel).Tracked), "same inputs give the same set")
}

func TestReconcileChangeOrderIsDeterministic(t *testing.T) {
	r := NewReconciler()
	snap := snapshotOf(
		host("AA:03", "c", "", true, true),
		host("AA:01", "a", "", true, true),
		host("AA:02", "b", "", true, true),
	)
	res := r.Reconcile(snap, domain.NewSelectionSet("AA:02", "AA:03", "AA:01"))

	var macs []string
	for _, c := range res.Diff.Changes {
		macs = append(macs, c.MAC)
	}
	assert.Equal(t, []string{"AA:01", "AA:02", "AA:03"}, macs)
}

func TestSelectionFilterApply(t *testing.T) {
	f := NewSelectionFilter()

	change := f.Apply(domain.NewSelectionSet("AA:01", "AA:02"))
	assert.Equal(t, []string{"AA:01", "AA:02"}, change.Added)
	assert.Empty(t, change.Removed)

	change = f.Apply(domain.NewSelectionSet("AA:02", "aa:03"))
	assert.Equal(t, []string{"AA:03"}, change.Added)
	assert.Equal(t, []string{"AA:01"}, change.Removed)

	sel := domain.NewSelectionSet("AA:03", "AA:02")
	assert.True(t, f.Apply(sel).Empty())

	delete(sel, "AA:02")
	assert.True(t, f.Apply(domain.NewSelectionSet("AA:02", "AA:03")).Empty(), "filter keeps its own copy")
}
