// Package live applies the remote change streams to the local replica.
//
// One applier goroutine runs per shape. Each consumes the shape's ordered
// change stream from the last persisted cursor position, applies every
// message inside a transaction together with the cursor advance, and
// resubscribes with exponential backoff when the stream drops. Messages at
// or below the persisted cursor are discarded, so replays after a crash or
// reconnect are harmless.
//
// A must-refetch control message means the stream can no longer guarantee
// incremental correctness; the applier hands the shape back to the
// reconciliation engine for a full resync and then resubscribes.
package live
