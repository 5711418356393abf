// Package remote implements the client side of the remote replication API.
//
// It provides three operations against the authoritative store:
//
//   - Snapshot: a full point-in-time download of one table's rows
//   - Subscribe: a long-lived ordered stream of change messages for a table
//   - PushMutations: delivery of locally queued writes
//
// All requests carry an Authorization bearer token obtained from the token
// provider. A 401/403 response invalidates the cached token and surfaces as
// *token.AuthError; every other failure is transient by default and left to
// the caller to retry with backoff (core/retry), except mutation pushes
// rejected with a 4xx, which are marked permanent.
//
// # Wire format
//
// Snapshot is a GET against {endpoint}/shape?table=..&columns=..&offset=-1
// returning {"rows": [...]}. The subscription is a streaming GET against
// {endpoint}/shape/stream yielding newline-delimited JSON messages of the
// form {"headers": {"operation": .., "lsn": .., "control": ..}, "value": {..}}.
// A control value of "must-refetch" tells the consumer that incremental
// correctness can no longer be guaranteed (server-side compaction) and the
// table must be re-downloaded via Snapshot.
package remote
