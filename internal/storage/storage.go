// Package storage implements the storage collaborator used by the upload
// manager: local disk, S3 and MinIO backends plus a quota decorator.
package storage

import (
	"context"
	"fmt"

	"github.com/Sarbeswarpanda04/Drive-Nest/internal/domain"
)

// Backend is a storage that can also read objects back and report health.
type Backend interface {
	domain.Storage
	domain.Opener
	domain.Pinger
}

// Backend kinds accepted in configuration.
const (
	KindLocal = "local"
	KindS3    = "s3"
	KindMinio = "minio"
)

// LocalConfig configures the local disk backend.
type LocalConfig struct {
	Root string `toml:"root"`
}

// Config selects and configures a backend.
type Config struct {
	Backend string        `toml:"backend"`
	Quota   string        `toml:"quota"` // e.g. "10GB"; empty = unlimited
	Local   LocalConfig   `toml:"local"`
	S3      S3Config      `toml:"s3"`
	Minio   MinioConfig   `toml:"minio"`
	Breaker BreakerConfig `toml:"breaker"`
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Backend {
	case KindLocal, "":
		return NewLocal(cfg.Local.Root)
	case KindS3:
		return NewS3(ctx, cfg.S3)
	case KindMinio:
		return NewMinio(cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage backend %q: %w", cfg.Backend, domain.ErrNotSupported)
	}
}

// Compile-time checks.
var (
	_ Backend = (*Local)(nil)
	_ Backend = (*S3)(nil)
	_ Backend = (*Minio)(nil)
	_ Backend = (*Quota)(nil)
	_ Backend = (*Breaker)(nil)
)
