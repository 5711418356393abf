// Package utils provides common utility functions for shapesync.
// It includes type coercion helpers for the untyped row values that cross
// the replication wire (JSON scalars) and shared logic that doesn't fit
// into domain-specific packages.
package utils
