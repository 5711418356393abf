// Package sync implements the reconciliation engine that brings the local
// replica to the remote authoritative state.
//
// The engine performs three jobs:
//
//  1. Dependency-ordered startup sync: every shape whose local table is
//     empty is fully downloaded, referent tables before referencing tables,
//     so foreign keys never point at rows that do not exist locally.
//  2. Hash validation: after the ordered sync, every shape is verified in
//     parallel by comparing a digest of the local primary key set against
//     the remote one. A mismatch triggers an unconditional full resync for
//     just that shape. This is the self-healing mechanism that catches
//     silent drift (a crashed sync, a missed delta) without an outage.
//  3. Completion: a one-time post-sync step (secondary index creation,
//     deferred until after the bulk load) and the single transition of the
//     process-wide status to "done".
//
// # Full table sync semantics
//
// DoFullTableSync reconciles one table inside a single local transaction:
// local rows absent from the remote id set are deleted (repairing rows
// orphaned by prior partial syncs), an empty remote snapshot wipes the
// table unless the shape is locally-originated tolerant, and every remote
// row is bulk-upserted with last-writer-wins semantics. Foreign key values
// are sanitized before they touch the store.
//
// Errors inside one shape's sync never abort another shape's sync; a failed
// run leaves the replica at its last known-good state and surfaces through
// the status publisher.
package sync
