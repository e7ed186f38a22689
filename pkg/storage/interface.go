package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Storage is the object store behind chat image uploads.
type Storage interface {
	// Write stores content from the reader under key.
	// size is the expected content size (-1 if unknown).
	Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the URL clients use to fetch key.
	URL(ctx context.Context, key string) (string, error)
}

// Config selects and configures a driver.
type Config struct {
	Driver    string        `mapstructure:"driver"` // "local", "s3"
	Local     LocalConfig   `mapstructure:"local"`
	S3        S3Config      `mapstructure:"s3"`
	URLExpiry time.Duration `mapstructure:"url_expiry"` // presigned URL lifetime (s3 without public_url)
}

// New builds the configured driver.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalStorage(cfg.Local)
	case "s3":
		return NewS3Storage(ctx, cfg.S3, cfg.URLExpiry)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
