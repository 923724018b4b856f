package vault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"pv-go/internal/model"
)

// DefaultHistoryLimit is how many backup metadata entries are retained.
const DefaultHistoryLimit = 20

// artifactExt is the file extension for backup artifacts in the blob store.
const artifactExt = ".pvb"

// BackupEngine serializes the vault into a single passphrase-encrypted
// artifact with a SHA-256 integrity checksum, and restores it with staged
// progress reporting. The artifact blob is opaque; it cannot be restored
// without its out-of-band BackupMetadata record.
type BackupEngine struct {
	kv     KeyValue
	store  *VaultStore
	keys   *KeySlotManager
	blobs  BlobStore
	cloud  CloudStorage // nil when no cloud collaborator is configured
	cipher ArtifactCipher
	logger Logger
	clock  Clock
	idgen  IDGenerator
	life   *Lifecycle

	historyLimit int
	mu           sync.Mutex
}

// NewBackupEngine creates a BackupEngine. cloud may be nil; cloud backups
// then fail with a configuration error while local backups work normally.
func NewBackupEngine(kv KeyValue, store *VaultStore, keys *KeySlotManager, blobs BlobStore, cloud CloudStorage, cipher ArtifactCipher, logger Logger, clock Clock, idgen IDGenerator, life *Lifecycle) *BackupEngine {
	return &BackupEngine{
		kv:           kv,
		store:        store,
		keys:         keys,
		blobs:        blobs,
		cloud:        cloud,
		cipher:       cipher,
		logger:       logger,
		clock:        clock,
		idgen:        idgen,
		life:         life,
		historyLimit: DefaultHistoryLimit,
	}
}

// CreateBackup snapshots the catalog (plus settings when requested),
// encrypts the aggregate under the backup passphrase (a separate secret
// from the vault's own key), checksums the ciphertext, stores the artifact
// locally, and appends its metadata to the bounded history.
func (e *BackupEngine) CreateBackup(passphrase string, includeSettings bool) (*model.BackupMetadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.life.Check(); err != nil {
		return nil, err
	}

	catalog, recycle, err := e.store.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("snapshotting vault: %w", err)
	}

	keySlot, err := e.keys.Export()
	if err != nil && !errors.Is(err, ErrNotConfigured) {
		return nil, fmt.Errorf("exporting key slot: %w", err)
	}

	payload := model.BackupPayload{
		Version: model.BackupPayloadVersion,
		Catalog: catalog,
		Recycle: recycle,
		KeySlot: keySlot,
	}
	if includeSettings {
		settings, ok, err := e.kv.Get(keySettings)
		if err != nil {
			return nil, fmt.Errorf("reading settings: %w", err)
		}
		if ok {
			payload.Settings = settings
		}
	}

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding backup payload: %w", err)
	}

	var artifact bytes.Buffer
	if err := e.cipher.Encrypt(passphrase, bytes.NewReader(plaintext), &artifact); err != nil {
		return nil, fmt.Errorf("encrypting backup: %w", err)
	}

	// Checksum over the ENCRYPTED artifact bytes, so integrity can be
	// verified on restore before any decryption is attempted.
	sum := sha256.Sum256(artifact.Bytes())

	var totalSize int64
	for _, f := range catalog.Files {
		totalSize += f.Size
	}

	meta := model.BackupMetadata{
		ID:        e.idgen.New(),
		Timestamp: e.clock.Now(),
		Version:   model.BackupPayloadVersion,
		FileCount: len(catalog.Files),
		TotalSize: totalSize,
		Type:      model.BackupTypeLocal,
		Encrypted: true,
		Checksum:  hex.EncodeToString(sum[:]),
	}

	if err := e.blobs.Put(meta.ID+artifactExt, bytes.NewReader(artifact.Bytes()), int64(artifact.Len())); err != nil {
		return nil, fmt.Errorf("storing artifact: %w", err)
	}

	if err := e.appendHistory(meta); err != nil {
		return nil, err
	}

	e.logger.Info("backup created", "id", meta.ID, "files", meta.FileCount, "bytes", artifact.Len())
	return &meta, nil
}

// CreateCloudBackup creates a local backup and uploads the artifact to the
// cloud collaborator. The metadata type flips to cloud only after the
// upload succeeds.
func (e *BackupEngine) CreateCloudBackup(ctx context.Context, passphrase string) (*model.BackupMetadata, error) {
	if e.cloud == nil {
		return nil, fmt.Errorf("no cloud storage configured")
	}

	meta, err := e.CreateBackup(passphrase, true)
	if err != nil {
		return nil, err
	}

	var artifact bytes.Buffer
	if err := e.blobs.Get(meta.ID+artifactExt, &artifact); err != nil {
		return nil, fmt.Errorf("reading artifact for upload: %w", err)
	}

	if err := e.cloud.Upload(ctx, meta.ID+artifactExt, bytes.NewReader(artifact.Bytes()), int64(artifact.Len())); err != nil {
		return nil, fmt.Errorf("uploading artifact: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	meta.Type = model.BackupTypeCloud
	if err := e.updateHistory(*meta); err != nil {
		return nil, err
	}

	e.logger.Info("backup uploaded", "id", meta.ID)
	return meta, nil
}

// DeleteBackup removes the local artifact, best-effort removes the cloud
// copy (absence there is not an error), and drops the metadata entry.
func (e *BackupEngine) DeleteBackup(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.life.Check(); err != nil {
		return err
	}

	history, err := e.loadHistory()
	if err != nil {
		return err
	}

	idx := -1
	for i := range history {
		if history[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("backup %s: %w", id, ErrNotFound)
	}

	if err := e.blobs.Delete(id + artifactExt); err != nil {
		return fmt.Errorf("deleting artifact: %w", err)
	}

	if e.cloud != nil && history[idx].Type == model.BackupTypeCloud {
		if err := e.cloud.Delete(ctx, id+artifactExt); err != nil && !errors.Is(err, ErrNotFound) {
			e.logger.Warn("cloud artifact removal failed", "id", id, "error", err)
		}
	}

	history = append(history[:idx], history[idx+1:]...)
	if err := e.saveHistory(history); err != nil {
		return err
	}

	e.logger.Info("backup deleted", "id", id)
	return nil
}

// History returns backup metadata, most recent first.
func (e *BackupEngine) History() ([]model.BackupMetadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.life.Check(); err != nil {
		return nil, err
	}
	history, err := e.loadHistory()
	if err != nil {
		return nil, err
	}
	// Stored oldest first; reverse for display.
	out := make([]model.BackupMetadata, len(history))
	for i, m := range history {
		out[len(history)-1-i] = m
	}
	return out, nil
}

// appendHistory appends meta and trims the history to the limit, oldest
// dropped first. Evicted entries' local artifacts are deleted best-effort.
// Caller holds e.mu.
func (e *BackupEngine) appendHistory(meta model.BackupMetadata) error {
	history, err := e.loadHistory()
	if err != nil {
		return err
	}

	history = append(history, meta)
	for len(history) > e.historyLimit {
		evicted := history[0]
		history = history[1:]
		if err := e.blobs.Delete(evicted.ID + artifactExt); err != nil {
			e.logger.Warn("evicted artifact removal failed", "id", evicted.ID, "error", err)
		}
	}
	return e.saveHistory(history)
}

// updateHistory replaces the entry matching meta.ID. Caller holds e.mu.
func (e *BackupEngine) updateHistory(meta model.BackupMetadata) error {
	history, err := e.loadHistory()
	if err != nil {
		return err
	}
	for i := range history {
		if history[i].ID == meta.ID {
			history[i] = meta
			return e.saveHistory(history)
		}
	}
	return fmt.Errorf("backup %s: %w", meta.ID, ErrNotFound)
}

func (e *BackupEngine) findMetadata(id string) (*model.BackupMetadata, error) {
	history, err := e.loadHistory()
	if err != nil {
		return nil, err
	}
	for i := range history {
		if history[i].ID == id {
			return &history[i], nil
		}
	}
	return nil, fmt.Errorf("backup %s: %w", id, ErrNotFound)
}

func (e *BackupEngine) loadHistory() ([]model.BackupMetadata, error) {
	data, ok, err := e.kv.Get(keyBackupHistory)
	if err != nil {
		return nil, fmt.Errorf("reading backup history: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var history []model.BackupMetadata
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("decoding backup history: %w", err)
	}
	return history, nil
}

func (e *BackupEngine) saveHistory(history []model.BackupMetadata) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encoding backup history: %w", err)
	}
	if err := e.kv.Set(keyBackupHistory, data); err != nil {
		return fmt.Errorf("storing backup history: %w", err)
	}
	return nil
}
