package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shapesync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Archiver uploads rows that a destructive repair is about to delete, so an
// operator can recover data a misbehaving remote snapshot would otherwise
// destroy. Archive failures are logged by the caller and never block the
// repair itself.
type Archiver struct {
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewArchiver creates an archiver writing into the given bucket.
func NewArchiver(client storage.Client, bucket string, logger *zap.Logger) *Archiver {
	return &Archiver{client: client, bucket: bucket, logger: logger}
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (a *Archiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check archive bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create archive bucket: %w", err)
	}
	return nil
}

// ArchiveRows uploads the rows as one JSON object keyed by table and
// timestamp. A zero-length row set is a no-op.
func (a *Archiver) ArchiveRows(ctx context.Context, table string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"table":       table,
		"archived_at": time.Now().UTC().Format(time.RFC3339),
		"rows":        rows,
	})
	if err != nil {
		return fmt.Errorf("failed to encode archive for %s: %w", table, err)
	}

	objName := fmt.Sprintf("archive/%s/%s.json", table, time.Now().UTC().Format("20060102T150405.000000000Z"))
	_, err = a.client.PutObject(ctx, a.bucket, objName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive %s: %w", objName, err)
	}

	a.logger.Info("Archived rows before destructive repair",
		zap.String("table", table),
		zap.Int("rows", len(rows)),
		zap.String("object", objName))
	return nil
}
