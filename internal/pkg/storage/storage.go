package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("object not found")

// ObjectStore keeps generated documents, such as earnings statements, and
// hands out time-limited download links for them.
type ObjectStore interface {
	// Put stores body under key, replacing any existing object.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Exists reports whether key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// SignedURL returns a download URL valid for ttl.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Config holds S3/MinIO connection settings
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}
