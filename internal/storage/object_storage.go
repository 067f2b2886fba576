// Package storage abstracts where uploaded document content lives.
// Keys are forward-slash paths assigned by the documents service; the
// backend is chosen by configuration.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ObjectStorage stores and retrieves document content by key
type ObjectStorage interface {
	// Put stores size bytes read from r under key, overwriting any
	// previous content.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Get returns a reader for the content under key. The caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content under key. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error
}

// validateKey rejects keys that could escape the storage root
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty storage key")
	}
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("storage key must be relative: %s", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("storage key contains invalid segment: %s", key)
		}
	}
	return nil
}
