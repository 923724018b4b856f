package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"pv-go/internal/blobstore"
	"pv-go/internal/capacity"
	"pv-go/internal/cloud"
	"pv-go/internal/config"
	"pv-go/internal/crypto"
	"pv-go/internal/encryption"
	"pv-go/internal/keyvalue"
	"pv-go/internal/model"
	"pv-go/internal/vault"
)

// App is the application layer between the CLI and the vault services. It
// constructs all collaborators from config and manages their lifecycle on
// Close. One App is one vault instance.
type App struct {
	cfg     *config.Config
	kv      vault.KeyValue
	blobs   vault.BlobStore
	cloud   vault.CloudStorage
	life    *vault.Lifecycle
	logger  vault.Logger
	logFile *os.File
	clock   vault.Clock
	idgen   vault.IDGenerator

	creds    *vault.CredentialStore
	keys     *vault.KeySlotManager
	governor *vault.AttemptGovernor
	bin      *vault.RecycleBin

	// Session state, populated by a successful Unlock.
	master  []byte
	store   *vault.VaultStore
	backups *vault.BackupEngine
}

// New creates a fully wired App from config. operation identifies the CLI
// command being run (e.g. "Unlock", "CreateBackup") and tags log lines.
// The caller must call Close when done.
func New(cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	slogger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	kv, err := keyvalue.NewStoreFromConfig(cfg.Storage, cfg.VaultID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating key-value store: %w", err)
	}

	blobs, err := blobstore.NewStoreFromConfig(cfg.Blobs)
	if err != nil {
		kv.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}

	cloudStore, err := cloud.NewStorageFromConfig(context.Background(), cfg.Cloud)
	if err != nil {
		kv.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating cloud storage: %w", err)
	}

	life := vault.NewLifecycle()
	clock := vault.RealClock{}
	idgen := vault.UUIDGenerator{}

	creds := vault.NewCredentialStore(kv, clock, logger, life)
	keys := vault.NewKeySlotManager(kv, life)
	bin := vault.NewRecycleBin(kv, clock, logger, life, cfg.RetentionDays)

	var destroyer vault.Destroyer
	if cfg.SelfDestruct {
		destroyer = vault.NewVaultDestroyer(kv, blobs, logger, life)
	}
	governor := vault.NewAttemptGovernor(kv, creds, logger, life, vault.GovernorOptions{
		MaxAttempts: cfg.MaxAttempts,
		Destroyer:   destroyer,
		Intrusion:   &intrusionLogger{l: logger},
	})

	return &App{
		cfg:      cfg,
		kv:       kv,
		blobs:    blobs,
		cloud:    cloudStore,
		life:     life,
		logger:   logger,
		logFile:  logFile,
		clock:    clock,
		idgen:    idgen,
		creds:    creds,
		keys:     keys,
		governor: governor,
		bin:      bin,
	}, nil
}

// Setup configures the vault: credential record, master key slot, and the
// recovery code (returned once; only its hash is stored).
func (a *App) Setup(credential string, method model.CredentialMethod) (recoveryCode string, err error) {
	configured, err := a.creds.IsConfigured()
	if err != nil {
		return "", err
	}
	if configured {
		return "", fmt.Errorf("vault is already set up; use ChangeCredential")
	}

	if err := a.creds.Setup(credential, method); err != nil {
		return "", err
	}
	if err := a.keys.Initialize(credential); err != nil {
		return "", err
	}

	code, err := newRecoveryCode()
	if err != nil {
		return "", err
	}
	if err := a.creds.SetupRecoveryCode(code); err != nil {
		return "", err
	}

	a.logger.Info("vault set up", "method", method)
	return code, nil
}

// Unlock runs a gated authentication attempt and, on success, unlocks the
// master key and builds the session services.
func (a *App) Unlock(credential string, method model.CredentialMethod) (bool, error) {
	ok, err := a.governor.Authenticate(credential, method)
	if err != nil || !ok {
		return ok, err
	}

	master, err := a.keys.Unlock(credential)
	if err != nil {
		return false, err
	}
	a.master = master

	cipher := crypto.NewGCMCipher(master)
	capProvider := capacity.NewProvider(a.cfg.BaseDir)
	a.store = vault.NewVaultStore(a.kv, cipher, a.bin, capProvider, a.logger, a.clock, a.idgen, a.life)
	a.backups = vault.NewBackupEngine(a.kv, a.store, a.keys, a.blobs, a.cloud, a.artifactCipher(), a.logger, a.clock, a.idgen, a.life)
	return true, nil
}

// ChangeCredential replaces the unlock credential and rewraps the key slot
// so existing payloads stay readable. The old credential goes through the
// same gated authentication as Unlock: a lockout rejects the change outright
// and a wrong guess counts toward the threshold.
func (a *App) ChangeCredential(oldCredential, newCredential string, method model.CredentialMethod) (bool, error) {
	ok, err := a.governor.Authenticate(oldCredential, method)
	if err != nil || !ok {
		return ok, err
	}
	if err := a.creds.Setup(newCredential, method); err != nil {
		return false, err
	}
	if err := a.keys.Rewrap(oldCredential, newCredential); err != nil {
		return false, err
	}
	return true, nil
}

// ResetLockout clears a lockout with the out-of-band recovery code.
func (a *App) ResetLockout(recoveryCode string) error {
	return a.governor.ResetWithRecoveryCode(recoveryCode)
}

// AttemptState returns the persisted lockout state for display.
func (a *App) AttemptState() (model.AttemptState, error) {
	return a.governor.State()
}

// Store returns the unlocked VaultStore, or an error while locked.
func (a *App) Store() (*vault.VaultStore, error) {
	if a.store == nil {
		return nil, fmt.Errorf("vault is locked; unlock first")
	}
	return a.store, nil
}

// Backups returns the unlocked BackupEngine, or an error while locked.
func (a *App) Backups() (*vault.BackupEngine, error) {
	if a.backups == nil {
		return nil, fmt.Errorf("vault is locked; unlock first")
	}
	return a.backups, nil
}

// Bin returns the recycle bin for the unlocked session, or an error while
// locked. Listing exposes file names and dates, and Empty destroys
// recoverable data, so the bin is gated like the other services.
func (a *App) Bin() (*vault.RecycleBin, error) {
	if a.store == nil {
		return nil, fmt.Errorf("vault is locked; unlock first")
	}
	return a.bin, nil
}

// Destroy explicitly and irreversibly wipes the vault, regardless of the
// self-destruct setting.
func (a *App) Destroy() error {
	destroyer := vault.NewVaultDestroyer(a.kv, a.blobs, a.logger, a.life)
	return destroyer.Destroy()
}

// Close clears session key material and releases resources.
func (a *App) Close() error {
	if a.master != nil {
		crypto.ClearBytes(a.master)
		a.master = nil
	}

	var firstErr error
	if err := a.kv.Close(); err != nil {
		firstErr = fmt.Errorf("closing key-value store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

func (a *App) artifactCipher() vault.ArtifactCipher {
	if a.cfg.Backup.Cipher == "test" {
		return encryption.NewTestArtifactCipher()
	}
	return encryption.NewAgeArtifactCipher()
}

// newRecoveryCode generates a 16-byte hex recovery code.
func newRecoveryCode() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating recovery code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
