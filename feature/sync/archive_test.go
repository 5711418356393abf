package sync

import (
	"context"
	"testing"

	storagemocks "shapesync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureBucketCreatesMissingBucket(t *testing.T) {
	client := new(storagemocks.Client)
	client.On("BucketExists", mock.Anything, "archive-bucket").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "archive-bucket", mock.Anything).Return(nil)

	a := NewArchiver(client, "archive-bucket", zap.NewNop())
	require.NoError(t, a.EnsureBucket(context.Background()))
	client.AssertExpectations(t)
}

func TestEnsureBucketSkipsExistingBucket(t *testing.T) {
	client := new(storagemocks.Client)
	client.On("BucketExists", mock.Anything, "archive-bucket").Return(true, nil)

	a := NewArchiver(client, "archive-bucket", zap.NewNop())
	require.NoError(t, a.EnsureBucket(context.Background()))
	client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func TestArchiveRowsUploadsJSON(t *testing.T) {
	client := new(storagemocks.Client)
	client.On("PutObject", mock.Anything, "archive-bucket", mock.MatchedBy(func(name string) bool {
		return len(name) > 0
	}), mock.Anything, mock.Anything, mock.Anything).Return(minio.UploadInfo{}, nil)

	a := NewArchiver(client, "archive-bucket", zap.NewNop())
	err := a.ArchiveRows(context.Background(), "lists", []map[string]any{
		{"id": "row-1", "name": "deleted list"},
	})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestArchiveRowsEmptyIsNoop(t *testing.T) {
	client := new(storagemocks.Client)

	a := NewArchiver(client, "archive-bucket", zap.NewNop())
	assert.NoError(t, a.ArchiveRows(context.Background(), "lists", nil))
	client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
