// Package status publishes the process-wide synchronization status.
//
// The Publisher is a small state machine over the statuses
// initial-sync, done, error, disabled and local-only. Consumers either
// query the current value synchronously with Get, or register a channel
// with Subscribe; late subscribers immediately receive the current value,
// so there is no missed-event window.
//
// Every Set is persisted to the sync_states bookkeeping row so the last
// known status survives restarts; Load restores it at boot. Fan-out is
// non-blocking: a slow subscriber misses intermediate updates rather than
// stalling the sync engine.
package status
