package vault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"pv-go/internal/model"
)

// RestoreStage identifies where a restore currently is.
type RestoreStage string

const (
	StagePreparing   RestoreStage = "preparing"
	StageDownloading RestoreStage = "downloading" // cloud backups only
	StageDecrypting  RestoreStage = "decrypting"
	StageRestoring   RestoreStage = "restoring"
	StageComplete    RestoreStage = "complete"
)

// RestoreProgress is pushed to the caller's callback as a restore advances.
// Complete is also the terminal state for failures: Err is set and the
// earlier stages' names describe where it failed. Callers must check Err,
// not assume success from seeing StageComplete.
type RestoreProgress struct {
	Stage       RestoreStage
	Percent     int // 0..100
	CurrentFile string
	Err         error
}

// ProgressFunc receives push-based restore progress. May be nil.
type ProgressFunc func(RestoreProgress)

// RestoreBackup fetches, verifies, decrypts and applies a backup.
//
// The checksum is recomputed over the fetched ciphertext and compared to the
// metadata before any decryption: a corrupt artifact fails with
// ErrIntegrityViolation and must never partially apply. A wrong passphrase
// fails with ErrDecryptionFailure, distinct, so the caller can re-prompt
// instead of re-downloading. The live catalog is replaced only after the
// whole aggregate has decoded; a failure at any earlier stage leaves the
// vault untouched.
func (e *BackupEngine) RestoreBackup(ctx context.Context, id string, passphrase string, onProgress ProgressFunc) error {
	report := func(p RestoreProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}
	fail := func(err error) error {
		report(RestoreProgress{Stage: StageComplete, Percent: 100, Err: err})
		e.logger.Error("restore failed", "id", id, "error", err)
		return err
	}

	if err := e.life.Check(); err != nil {
		return fail(err)
	}

	report(RestoreProgress{Stage: StagePreparing, Percent: 0})

	e.mu.Lock()
	meta, err := e.findMetadata(id)
	e.mu.Unlock()
	if err != nil {
		return fail(err)
	}

	artifact, err := e.fetchArtifact(ctx, meta, report)
	if err != nil {
		return fail(err)
	}

	sum := sha256.Sum256(artifact)
	if hex.EncodeToString(sum[:]) != meta.Checksum {
		return fail(fmt.Errorf("backup %s: %w", id, ErrIntegrityViolation))
	}

	report(RestoreProgress{Stage: StageDecrypting, Percent: 50})

	var plaintext bytes.Buffer
	if err := e.cipher.Decrypt(passphrase, bytes.NewReader(artifact), &plaintext); err != nil {
		if errors.Is(err, ErrDecryptionFailure) {
			return fail(err)
		}
		return fail(fmt.Errorf("%w: %v", ErrDecryptionFailure, err))
	}

	var payload model.BackupPayload
	if err := json.Unmarshal(plaintext.Bytes(), &payload); err != nil {
		return fail(fmt.Errorf("decoding backup payload: %w", err))
	}
	if payload.Version > model.BackupPayloadVersion {
		return fail(fmt.Errorf("backup payload version %d is newer than supported %d", payload.Version, model.BackupPayloadVersion))
	}

	report(RestoreProgress{Stage: StageRestoring, Percent: 75})

	// Per-file progress over the decoded snapshot. The actual swap below is
	// a handful of whole-value writes, so the walk is where file names can
	// be surfaced without ever exposing a half-applied catalog.
	total := len(payload.Catalog.Files)
	for i, f := range payload.Catalog.Files {
		pct := 75
		if total > 0 {
			pct += (i + 1) * 24 / total
		}
		report(RestoreProgress{Stage: StageRestoring, Percent: pct, CurrentFile: f.Name})
	}

	if err := e.store.Commit(payload.Catalog, payload.Recycle); err != nil {
		return fail(fmt.Errorf("committing restored catalog: %w", err))
	}
	if len(payload.KeySlot) > 0 {
		if err := e.kv.Set(keyKeySlot, payload.KeySlot); err != nil {
			return fail(fmt.Errorf("restoring key slot: %w", err))
		}
	}
	if len(payload.Settings) > 0 {
		if err := e.kv.Set(keySettings, payload.Settings); err != nil {
			return fail(fmt.Errorf("restoring settings: %w", err))
		}
	}

	report(RestoreProgress{Stage: StageComplete, Percent: 100})
	e.logger.Info("restore complete", "id", id, "files", total)
	return nil
}

// fetchArtifact reads the artifact bytes locally or from the cloud
// depending on the backup type. Cloud downloads are retried once on a
// transient failure; reads are idempotent, unlike catalog writes.
func (e *BackupEngine) fetchArtifact(ctx context.Context, meta *model.BackupMetadata, report ProgressFunc) ([]byte, error) {
	name := meta.ID + artifactExt

	if meta.Type == model.BackupTypeCloud {
		if e.cloud == nil {
			return nil, fmt.Errorf("backup %s is a cloud backup but no cloud storage is configured", meta.ID)
		}
		report(RestoreProgress{Stage: StageDownloading, Percent: 25})

		var buf bytes.Buffer
		err := e.cloud.Download(ctx, name, &buf)
		if err != nil && errors.Is(err, ErrCloudTransient) {
			e.logger.Warn("transient download failure, retrying once", "id", meta.ID)
			buf.Reset()
			err = e.cloud.Download(ctx, name, &buf)
		}
		if err == nil {
			return buf.Bytes(), nil
		}
		// Fall back to the local copy if one still exists.
		var local bytes.Buffer
		if lerr := e.blobs.Get(name, &local); lerr == nil {
			e.logger.Warn("cloud download failed, using local artifact", "id", meta.ID, "error", err)
			return local.Bytes(), nil
		}
		return nil, fmt.Errorf("downloading artifact: %w", err)
	}

	var buf bytes.Buffer
	if err := e.blobs.Get(name, &buf); err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return buf.Bytes(), nil
}
