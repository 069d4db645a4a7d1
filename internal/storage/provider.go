// Package storage keeps the pictures taken by the mission in an S3 compatible
// object store.
package storage

import (
	"context"
	"time"
)

const ContentTypeJPEG = "image/jpeg"

// Provider is an object store holding mission pictures.
type Provider interface {
	// CheckBucket makes sure the bucket exists, creating it when missing.
	CheckBucket(ctx context.Context) error

	// Put stores data under key.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// PresignedURL returns a temporary download link for key.
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
