// Package shape defines the set of remote table projections mirrored into
// the local replica, together with the per-table sync policies.
//
// A Shape names one remote table, the columns the replica projects, and the
// shapes it references through foreign keys. The registry is static: shapes
// are declared once and loaded at startup; the sync engine never discovers
// tables dynamically.
//
// # Dependency Order
//
// Shapes that reference another shape's id column must be synced after the
// shape they reference, so that foreign keys never point at rows that do not
// exist locally yet. Ordered() returns the registry in that order.
//
// # Policies
//
//   - LocalOrigin: rows may legitimately exist locally before they ever reach
//     the server. An empty remote snapshot must not wipe such a table.
//   - SoftDelete: a remote delete for the table is modeled as a local flag
//     update instead of a hard row deletion.
//
// # Sanitization
//
// Foreign key columns must hold either NULL or a syntactically valid UUID.
// SanitizeForeignKey coerces anything else to nil so that malformed values
// from the remote store never corrupt referential integrity locally.
package shape
