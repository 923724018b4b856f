package cloud

import (
	"context"
	"fmt"

	"pv-go/internal/config"
	"pv-go/internal/vault"
)

// NewStorageFromConfig creates a CloudStorage based on the cloud config
// type. An empty type means no cloud collaborator: (nil, nil).
func NewStorageFromConfig(ctx context.Context, cfg config.CloudConfig) (vault.CloudStorage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "memory":
		return NewMemoryStorage(), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 cloud storage requires s3_bucket to be set")
		}
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown cloud storage type: %s", cfg.Type)
	}
}
