// Package database handles the local replica database connection and its
// schema.
//
// It wraps GORM to configure the embedded SQLite replica (the default) or a
// MySQL connection for deployments where several processes share one
// replica. The driver is selected by configuration; everything above this
// package is dialect-agnostic.
//
// # Schema
//
// Migrate creates the mirrored tables from the shape registry plus the sync
// bookkeeping tables owned by the engine:
//
//   - shape_cursors: per-shape change stream position
//   - sync_states: the persisted process-wide sync status
//   - outbox_mutations: the durable offline mutation queue
//
// Secondary indexes on foreign key columns are deliberately NOT created
// here: building them row-by-row during the initial bulk load would be far
// slower, so the sync engine creates them once after the first full sync
// completes (EnsureIndexes).
//
// # Inspection
//
// The inspector helpers answer the cheap existence questions the engine
// asks before deciding to sync: does the table exist, is it empty, and what
// is its sorted primary key set (the input to content hashing).
package database
