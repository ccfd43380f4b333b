package service

import (
	"lanwatch/internal/domain"
)

// SelectionChange is the set difference between two selections
type SelectionChange struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Empty reports whether the selection did not change
func (c SelectionChange) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// SelectionFilter remembers the selection in effect at the previous
// reconcile and reports what changed. It holds identities only.
type SelectionFilter struct {
	previous domain.SelectionSet
}

// NewSelectionFilter creates a filter with an empty previous selection
func NewSelectionFilter() *SelectionFilter {
	return &SelectionFilter{previous: domain.NewSelectionSet()}
}

// Apply records selection as the one in effect and returns the difference
// against the previous one
func (f *SelectionFilter) Apply(selection domain.SelectionSet) SelectionChange {
	var change SelectionChange
	for _, mac := range selection.Sorted() {
		if !f.previous.Has(mac) {
			change.Added = append(change.Added, mac)
		}
	}
	for _, mac := range f.previous.Sorted() {
		if !selection.Has(mac) {
			change.Removed = append(change.Removed, mac)
		}
	}
	f.previous = selection.Clone()
	return change
}
