package filestore

import (
	"context"
	"errors"
	"io"
)

// ErrBlobNotFound is returned by backends when a key has no object behind it.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStorage is the physical storage behind the store's records. Keys are
// chosen by the store; backends must treat them as opaque relative paths.
type BlobStorage interface {
	Save(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
