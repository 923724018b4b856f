package keyvalue

import (
	"fmt"
	"os"
	"path/filepath"

	"pv-go/internal/config"
	"pv-go/internal/vault"
)

// NewStoreFromConfig creates a KeyValue implementation based on the storage
// config type.
func NewStoreFromConfig(cfg config.StorageConfig, vaultID string) (vault.KeyValue, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite storage")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, vaultID+".db"))
	case "bbolt":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for bbolt storage")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewBoltStore(filepath.Join(cfg.DataDir, vaultID+".bolt"))
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
