// Package storage persists uploaded document bytes under server-chosen keys.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/frahmantamala/policy-register/internal"
)

var ErrNotFound = errors.New("blob not found")

// Blob is the storage contract consumed by the document pipeline.
type Blob interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Name() string
	Ping(ctx context.Context) error
}

// New builds the configured backend.
func New(ctx context.Context, cfg internal.StorageConfig, logger *slog.Logger) (Blob, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStore(cfg.LocalDir, logger)
	case "minio":
		return NewMinioStore(ctx, cfg.Minio, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
