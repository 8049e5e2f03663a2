package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSStorage keeps blobs as objects in a single bucket. Keys map directly to
// object names. Writes retry with doubling backoff since a finalizing Close
// is where transient GCS failures surface.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

func NewGCSStorage(client *storage.Client, bucket string) (*GCSStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Save(ctx context.Context, key string, data []byte) error {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := s.writeOnce(ctx, key, data)
		if err == nil {
			return nil
		}
		// A precondition failure means another writer already finalized this
		// key; the object is there, which is all Save promises.
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			return nil
		}
		lastErr = err
		slog.Warn("GCS write failed, will retry.",
			"gcsObject", key,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("write for %s failed after all retries: %w", key, lastErr)
}

func (s *GCSStorage) writeOnce(ctx context.Context, key string, data []byte) error {
	writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("io.Copy to GCS failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func (s *GCSStorage) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", s.bucket, key, err)
	}
	return r, nil
}

func (s *GCSStorage) Delete(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err == nil || errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return fmt.Errorf("failed to delete GCS object gs://%s/%s: %w", s.bucket, key, err)
}
