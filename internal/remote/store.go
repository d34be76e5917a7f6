// Package remote abstracts the object store holding synced artifacts.
// The production backend is any S3-compatible store (R2, MinIO, S3);
// tests substitute an in-memory implementation.
package remote

import "context"

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// ByteProgress receives incremental byte counts during a transfer.
type ByteProgress func(n int64)

// ObjectStore is the minimal surface the sync and migration engines
// need. Keys are slash-separated and never start with "/". All methods
// honor context cancellation; an operation whose object is in flight
// completes that object before returning ctx.Err().
type ObjectStore interface {
	// List returns all objects under prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// GetBytes fetches a small object fully into memory.
	GetBytes(ctx context.Context, key string) ([]byte, error)

	// PutBytes stores data under key.
	PutBytes(ctx context.Context, key string, data []byte) error

	// Download streams key into the local file at localPath, creating
	// parent directories as needed.
	Download(ctx context.Context, key, localPath string, onBytes ByteProgress) error

	// Upload streams the local file at localPath to key.
	Upload(ctx context.Context, localPath, key string, onBytes ByteProgress) error

	// Copy duplicates srcKey to dstKey server-side. size is the object
	// size in bytes, used to pick the copy strategy.
	Copy(ctx context.Context, srcKey, dstKey string, size int64, onBytes ByteProgress) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
