package adapter

import (
	"context"

	"lanwatch/internal/domain"
)

// Source is a remote scanner that can be polled for its host list
type Source interface {
	// Name returns the unique identifier for this source
	Name() string

	// Endpoint returns the base URL the source talks to
	Endpoint() string

	// Probe checks that the scanner is reachable
	Probe(ctx context.Context) error

	// Fetch returns the raw host list payload
	Fetch(ctx context.Context) ([]byte, error)
}

// Sink receives the outcome of every poll cycle. All calls for one source
// come from that source's coordinator, one at a time.
type Sink interface {
	// Published is called after a new snapshot replaced old (nil on the first poll)
	Published(old, snap *domain.Snapshot)

	// Failed is called after a failed poll; the current snapshot stays in force
	Failed(err error, consecutive int)

	// SelectionChanged is called when the operator changes the selection
	// between polls
	SelectionChanged(selection domain.SelectionSet)
}
