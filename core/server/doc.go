// Package server holds the configuration for the local HTTP API surface.
//
// The daemon exposes a small Fiber application through which an interactive
// client reads the sync status, performs local writes and triggers repairs.
// This package only declares the partial Config consumed by core/config;
// the application itself is assembled in cmd/start.go.
package server
