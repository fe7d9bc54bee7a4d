// Package blob stores avatar images. Two drivers exist: an S3-compatible
// bucket for deployments and process memory for local development and tests.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ekaya-inc/ekaya-notebook/pkg/config"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("blob not found")

// Driver identifies a blob storage backend.
type Driver string

const (
	DriverS3     Driver = "s3"
	DriverMemory Driver = "memory"
)

// Object is a stored blob.
type Object struct {
	Key         string
	ContentType string
	Size        int64
}

// Store is the minimal storage surface avatars need.
type Store interface {
	Driver() Driver
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the object and a reader the caller must close.
	Get(ctx context.Context, key string) (Object, io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewFromConfig opens the store selected by cfg.Driver.
func NewFromConfig(ctx context.Context, cfg *config.BlobConfig) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverS3:
		return NewS3Store(ctx, S3Config{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
