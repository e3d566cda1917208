package storage

import (
	"context"
	"fmt"

	"solartrack/internal/config"
)

// New builds the configured blob backend.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "local", "":
		basePath := cfg.LocalPath
		if basePath == "" {
			basePath = "./uploads"
		}
		return NewLocalStorage(basePath)

	case "s3":
		if cfg.S3Bucket == "" || cfg.S3Region == "" {
			return nil, fmt.Errorf("storage: s3 backend requires STORAGE_S3_BUCKET and STORAGE_S3_REGION")
		}
		return NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region)

	default:
		return nil, fmt.Errorf("storage: unknown storage type %q", cfg.Type)
	}
}
