package remote

import (
	"context"

	"shapesync/core/shape"
)

// Change stream operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ControlMustRefetch signals that the subscription cannot guarantee
// incremental correctness and the consumer must fall back to Snapshot.
const ControlMustRefetch = "must-refetch"

// ChangeMessage is one element of a table's ordered change stream.
type ChangeMessage struct {
	// Operation is one of OpInsert, OpUpdate, OpDelete. Empty for pure
	// control messages.
	Operation string

	// Row carries the full row for inserts and the changed columns for
	// updates; for deletes only the id is guaranteed.
	Row map[string]any

	// LSN is the message's position in the stream. Monotonically increasing
	// per table.
	LSN int64

	// Control carries a control signal such as ControlMustRefetch.
	Control string

	// Err reports a stream failure. The channel is closed after an Err
	// message; consumers resubscribe with backoff.
	Err error
}

// Mutation is a locally originated write queued for delivery to the remote
// store.
type Mutation struct {
	ID           string         `json:"id"`
	Table        string         `json:"table"`
	Operation    string         `json:"operation"`
	RowID        string         `json:"row_id"`
	Changes      map[string]any `json:"changes,omitempty"`
	IsNew        bool           `json:"is_new"`
	IsHardDelete bool           `json:"is_hard_delete"`
}

// Client is the narrow interface the sync engines consume. The production
// implementation speaks HTTP; tests substitute the mock in remote/mocks.
type Client interface {
	// Snapshot fetches the full contents of a table as of "now". A table
	// with zero rows yields an empty slice, not an error.
	Snapshot(ctx context.Context, table string, columns []string) ([]map[string]any, error)

	// Subscribe opens the change stream for a table starting after the
	// given position. The returned channel is closed when the stream ends;
	// a final ChangeMessage with Err set reports abnormal termination.
	Subscribe(ctx context.Context, table string, columns []string, since int64) (<-chan ChangeMessage, error)

	// PushMutations delivers a batch of local mutations. A 4xx rejection is
	// returned as a permanent error (retry.IsPermanent); everything else is
	// transient.
	PushMutations(ctx context.Context, batch []Mutation) error
}

// SnapshotShape is a convenience wrapper fetching a snapshot for a shape's
// declared projection.
func SnapshotShape(ctx context.Context, c Client, s shape.Shape) ([]map[string]any, error) {
	return c.Snapshot(ctx, s.Name, s.ColumnNames())
}
