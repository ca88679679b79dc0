// Package storage provides the blob store port for uploaded source
// documents and generated video files, with S3 and local-disk backends.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in the store.
var ErrObjectNotFound = errors.New("storage: object not found")

// Store defines the interface for blob storage. Objects are addressed by
// path-style keys; the namespace is keyed by user id and timestamp by the
// callers to avoid collisions.
type Store interface {
	// Upload streams data to the store and returns a stable URL for the
	// object.
	Upload(ctx context.Context, key, contentType string, body io.Reader) (url string, err error)

	// Download reads an object back from the store.
	// The caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// SignedURL returns a time-limited URL granting read access to the
	// object, for handing to external services.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
