// Package storage provides the blob-storage boundary used for incidence
// photos and generated PDF reports, with S3 and local-filesystem backends.
package storage

import (
	"context"
	"fmt"
	"io"
)

// Blob is the object storage contract.
type Blob interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Config selects and configures the blob backend.
type Config struct {
	Type string // "filesystem" or "s3"

	FilesystemRoot string

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
}

// DefaultConfig returns a local filesystem configuration.
func DefaultConfig() Config {
	return Config{
		Type:           "filesystem",
		FilesystemRoot: "/var/lib/plantas/blobs",
		S3Region:       "us-east-1",
	}
}

// New constructs the configured Blob backend.
func New(cfg Config) (Blob, error) {
	switch cfg.Type {
	case "filesystem":
		return NewFilesystem(cfg.FilesystemRoot)
	case "s3":
		return NewS3(cfg)
	default:
		return nil, fmt.Errorf("invalid blob storage type: %s (must be filesystem or s3)", cfg.Type)
	}
}
