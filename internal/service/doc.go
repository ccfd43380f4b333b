// Package service turns snapshots into tracked host state.
//
// A Reconciler folds each snapshot into the set of tracked entities for the
// selected MACs and yields a Diff. A Tracker owns one source's snapshot,
// selection and reconciler, and publishes an immutable View after every
// cycle so readers never observe a half-applied update.
//
// # Event System
//
// Trackers publish to an EventBus. Each completed cycle emits
// EventReconciled with its Diff and each failed poll emits EventPollFailed.
// Publishing never blocks; slow subscribers miss events.
package service
