package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/internship-affectation/pkg/config"
)

// ErrObjectNotFound is returned when a stored export does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// Store persists rendered export files under opaque keys.
type Store interface {
	Save(ctx context.Context, key, contentType string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New picks the export store configured by EXPORT_STORAGE_DRIVER.
func New(ctx context.Context, cfg config.ExportsConfig) (Store, error) {
	switch cfg.StorageDriver {
	case "", config.StorageLocal:
		return NewLocalStorage(cfg.StorageDir)
	case config.StorageS3:
		return NewS3Storage(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.StorageDriver)
	}
}
