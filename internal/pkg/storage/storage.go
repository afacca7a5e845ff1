package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage is the minimal interface cover uploads need from a backend:
// put a blob, delete a blob, resolve its public URL.
type Storage interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Config selects and configures a storage backend
type Config struct {
	Provider    string // "s3" or "local"
	S3Region    string
	S3Bucket    string
	S3Endpoint  string // custom endpoint for S3-compatible stores (MinIO, R2)
	S3AccessKey string
	S3SecretKey string
	PublicURL   string // public base URL fronting the bucket / local dir
	LocalPath   string
}

// New creates the configured storage backend
func New(cfg Config) (Storage, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "local", "":
		return NewLocalStorage(cfg.LocalPath, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}
