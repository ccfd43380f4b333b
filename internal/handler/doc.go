// Package handler implements the consumer HTTP API of lanwatch.
//
// Read-only endpoints expose each source's aggregate counts, tracked hosts
// and the full discovered host list. Two write endpoints change the device
// selection and trigger an out-of-schedule poll.
//
// # Response Format
//
// Success responses return JSON data. Error responses return JSON with
// {error, details} structure.
//
// # Server-Sent Events
//
// The /events endpoint streams host_added, host_updated, host_went_offline,
// host_removed, aggregates_updated and poll_failed messages.
package handler
