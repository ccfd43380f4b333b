// Package adapter polls WatchYourLAN scanners.
//
// Client speaks the scanner's read-only JSON API: /api/all for the host list
// and /api/status/ as a connectivity probe.
//
// # Coordinator
//
// A Coordinator drives one source through the poll states
//
//	idle -> fetching -> published|failed -> idle
//
// on a fixed timer. A tick that arrives while a fetch is in flight is
// skipped. Failures keep the last published snapshot and bump a
// consecutive failure counter; the timer is never altered. The first poll
// runs inside Start so its error reaches the caller.
//
// # Registry
//
// Registry indexes the coordinators of all configured sources and starts
// and stops them together.
package adapter
