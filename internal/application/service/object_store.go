package service

import (
	"context"
	"io"
)

// ObjectStore holds uploaded CV files under owner-scoped keys.
type ObjectStore interface {
	// Put stores the object and returns its public retrieval URL.
	Put(ctx context.Context, key string, file io.Reader, contentType string) (string, error)
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}
