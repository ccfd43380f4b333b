// Package domain defines the core types for keeping a LAN host inventory in
// sync with a remote WatchYourLAN scanner.
//
// # Core Types
//
// Host is one device as reported by the scanner. MAC is its identity; every
// other field is descriptive.
//
// Snapshot is the immutable, MAC-keyed result of one successful poll. A new
// poll always produces a new Snapshot that replaces the old one wholesale.
//
// TrackedEntity is the state surfaced to consumers for a selected host. It
// survives polls in which the host is missing (presence goes offline) and is
// only removed when the host is deselected.
//
// SelectionSet is the operator-chosen set of MACs that are surfaced at all.
//
// # Diffs
//
// Each reconcile cycle yields a Diff of Added, Updated, WentOffline and Removed
// changes together with Aggregates (total/online/offline/known/unknown) over
// the selected hosts of the current Snapshot.
//
// # Errors
//
// Poll failures are one of ConnectError, HTTPStatusError or NormalizationError;
// Classify maps any error to its ErrorKind.
package domain
