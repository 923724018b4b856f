package blobstore

import (
	"fmt"

	"pv-go/internal/config"
	"pv-go/internal/vault"
)

// NewStoreFromConfig creates a BlobStore based on the blob config type.
func NewStoreFromConfig(cfg config.BlobConfig) (vault.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem blob store requires dir to be set")
		}
		return NewFileSystemStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
