package domain

import "time"

// ChangeKind identifies what happened to a tracked host during a reconcile
type ChangeKind string

const (
	ChangeAdded       ChangeKind = "added"
	ChangeUpdated     ChangeKind = "updated"
	ChangeWentOffline ChangeKind = "went_offline"
	ChangeRemoved     ChangeKind = "removed"
)

// Change is one per-MAC entry of a reconcile diff. Entity is the state after
// the change; for removals it is the last state before teardown.
type Change struct {
	Kind   ChangeKind     `json:"kind"`
	MAC    string         `json:"mac"`
	Entity *TrackedEntity `json:"entity"`
}

// Diff is the outcome of one reconcile cycle
type Diff struct {
	Changes    []Change   `json:"changes"`
	Aggregates Aggregates `json:"aggregates"`
	// StillAbsent lists selected MACs that were already offline and are
	// still missing from the snapshot
	StillAbsent []string  `json:"still_absent,omitempty"`
	At          time.Time `json:"at"`
}

// Empty reports whether the cycle produced no per-host changes
func (d Diff) Empty() bool {
	return len(d.Changes) == 0
}

// Count returns how many changes of the given kind the diff holds
func (d Diff) Count(kind ChangeKind) int {
	n := 0
	for _, c := range d.Changes {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Aggregates are derived counts over the selected hosts of the current snapshot
type Aggregates struct {
	Total   int `json:"total"`
	Online  int `json:"online"`
	Offline int `json:"offline"`
	Known   int `json:"known"`
	Unknown int `json:"unknown"`
}

// ComputeAggregates counts the selected subset of snap. Hosts that are
// selected but absent from the snapshot are not counted.
func ComputeAggregates(snap *Snapshot, selection SelectionSet) Aggregates {
	var a Aggregates
	for _, mac := range selection.Sorted() {
		h, ok := snap.Get(mac)
		if !ok {
			continue
		}
		a.Total++
		if h.Online {
			a.Online++
		}
		if h.Known {
			a.Known++
		}
	}
	a.Offline = a.Total - a.Online
	a.Unknown = a.Total - a.Known
	return a
}
