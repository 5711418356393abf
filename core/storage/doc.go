// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client to provide a simplified interface for the
// operations the archive path needs. Before a destructive repair deletes
// local rows (orphan cleanup, empty-remote wipe), the sync engine uploads
// the rows about to be removed as a JSON object, so an operator can recover
// data that a misbehaving remote snapshot would otherwise destroy.
//
// The Client interface abstracts the underlying storage provider, making it
// easy to mock storage interactions for unit testing (see storage/mocks).
// Both AWS S3 and self-hosted MinIO instances are supported.
package storage
