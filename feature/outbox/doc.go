// Package outbox implements offline-capable local writes.
//
// Every local mutation is applied to the replica and enqueued as an outbox
// row in the same transaction, so a crash can never lose a write that the
// caller saw succeed. A background pusher drains the queue in batches:
// writes are debounced so bursts coalesce, a periodic tick picks up
// whatever earlier pushes left behind, and batches are retried with
// exponential backoff. A batch the server rejects outright is replayed
// mutation by mutation so only the offending write is parked with its
// error message; everything else still reaches the server.
//
// Deletes follow the shape's deletion policy: shapes with a soft-delete
// rule flag the row locally and push a soft delete, everything else is
// removed outright.
package outbox
