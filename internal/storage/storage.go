// Package storage contains the object storage boundary for document bytes.
// Implementations rely on streaming I/O only and never touch local disk.
// Keys are namespaced per owner (ownerID/object) so one identity can never
// address another identity's objects.
package storage

import (
	"context"
	"io"
	"time"
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1
// and the implementation will buffer/chunk as supported by the backend.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is the object storage boundary consumed by the vault.
// Methods use context and streaming readers/writers.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a key that no longer
	// exists is treated as success.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited URL that can be used to download
	// the object without credentials. The URL expires; callers must
	// re-resolve it rather than persist it.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}
