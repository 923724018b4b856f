package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for pv.
type Config struct {
	VaultID       string        `toml:"vault_id"`
	BaseDir       string        `toml:"base_dir"`
	LogDir        string        `toml:"log_dir"`
	MaxAttempts   int           `toml:"max_attempts"`   // lockout threshold, default 5
	SelfDestruct  bool          `toml:"self_destruct"`  // wipe the vault on lockout
	RetentionDays int           `toml:"retention_days"` // recycle-bin retention, default 7
	Storage       StorageConfig `toml:"storage"`
	Blobs         BlobConfig    `toml:"blobs"`
	Cloud         CloudConfig   `toml:"cloud"`
	Backup        BackupConfig  `toml:"backup"`
}

// StorageConfig selects the key-value backend.
// Tagged union: the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type    string `toml:"type"`               // "memory", "sqlite", or "bbolt"
	DataDir string `toml:"data_dir,omitempty"` // sqlite/bbolt database directory
}

// BlobConfig selects the local artifact store.
type BlobConfig struct {
	Type string `toml:"type"`          // "memory" or "filesystem"
	Dir  string `toml:"dir,omitempty"` // filesystem artifact directory
}

// CloudConfig selects the cloud storage collaborator.
// Tagged union: the Type field determines which other fields are relevant.
type CloudConfig struct {
	Type string `toml:"type"` // "", "memory", or "s3"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket string `toml:"s3_bucket,omitempty"`
	S3Prefix string `toml:"s3_prefix,omitempty"`
	S3Region string `toml:"s3_region,omitempty"`

	// Optional static credentials; the default AWS credential chain is used
	// when these are empty.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// BackupConfig holds backup artifact settings.
type BackupConfig struct {
	Cipher string `toml:"cipher"` // "age" (default) or "test"
}

// NewConfig creates a Config with the provided values and default layout.
func NewConfig(vaultID, baseDir string) *Config {
	return &Config{
		VaultID:       vaultID,
		BaseDir:       baseDir,
		LogDir:        filepath.Join(baseDir, "log"),
		MaxAttempts:   5,
		RetentionDays: 7,
		Storage: StorageConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Blobs: BlobConfig{
			Type: "filesystem",
			Dir:  filepath.Join(baseDir, "backups"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
// Refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
