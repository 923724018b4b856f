package vault

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pv-go/internal/model"
)

// DefaultRetentionDays is how long soft-deleted files are recoverable.
const DefaultRetentionDays = 7

// RecycleBin holds soft-deleted files for a bounded retention window.
// Expired entries are purged lazily on every load, so a bin that is never
// emptied explicitly still honors the window.
type RecycleBin struct {
	kv        KeyValue
	clock     Clock
	logger    Logger
	life      *Lifecycle
	retention time.Duration

	mu sync.Mutex
}

// BinEntry is a deleted file with its display-ready remaining lifetime.
type BinEntry struct {
	model.DeletedFile
	DaysRemaining int
}

// NewRecycleBin creates a RecycleBin. retentionDays <= 0 selects the default.
func NewRecycleBin(kv KeyValue, clock Clock, logger Logger, life *Lifecycle, retentionDays int) *RecycleBin {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &RecycleBin{
		kv:        kv,
		clock:     clock,
		logger:    logger,
		life:      life,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Add stamps the file with the deletion time and appends it to the bin,
// preserving the original folder reference for later restore.
func (b *RecycleBin) Add(file model.VaultFile) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.load()
	if err != nil {
		return err
	}

	entries = append(entries, model.DeletedFile{
		File:             file,
		DeletedAt:        b.clock.Now(),
		OriginalFolderID: file.FolderID,
	})
	return b.save(entries)
}

// Restore removes a file from the bin and returns it. A missing id is
// ErrNotFound, not a silent no-op: a stale restore means the caller's view
// has drifted from the data and that is worth surfacing.
func (b *RecycleBin) Restore(id string) (*model.DeletedFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.load()
	if err != nil {
		return nil, err
	}

	for i := range entries {
		if entries[i].File.ID == id {
			deleted := entries[i]
			entries = append(entries[:i], entries[i+1:]...)
			if err := b.save(entries); err != nil {
				return nil, err
			}
			return &deleted, nil
		}
	}
	return nil, fmt.Errorf("recycled file %s: %w", id, ErrNotFound)
}

// List returns the bin's contents with remaining days for display.
func (b *RecycleBin) List() ([]BinEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.load()
	if err != nil {
		return nil, err
	}

	out := make([]BinEntry, len(entries))
	for i, e := range entries {
		out[i] = BinEntry{DeletedFile: e, DaysRemaining: b.daysRemaining(e)}
	}
	return out, nil
}

// Empty purges every entry, expired or not.
func (b *RecycleBin) Empty() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.life.Check(); err != nil {
		return err
	}
	if err := b.kv.Set(keyRecycleBin, []byte("[]")); err != nil {
		return fmt.Errorf("storing recycle bin: %w", err)
	}
	b.logger.Info("recycle bin emptied")
	return nil
}

// daysRemaining computes ceil(expiry - now) in days, never below zero.
func (b *RecycleBin) daysRemaining(e model.DeletedFile) int {
	left := e.DeletedAt.Add(b.retention).Sub(b.clock.Now())
	if left <= 0 {
		return 0
	}
	days := int((left + 24*time.Hour - 1) / (24 * time.Hour))
	return days
}

// entries returns the live bin contents. Caller must not hold b.mu.
func (b *RecycleBin) entries() ([]model.DeletedFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

// replace swaps the bin contents wholesale (restore path).
func (b *RecycleBin) replace(entries []model.DeletedFile) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if entries == nil {
		entries = []model.DeletedFile{}
	}
	return b.save(entries)
}

// load reads the bin and purges expired entries in the same pass,
// persisting the trimmed list when anything fell off. Caller holds b.mu.
func (b *RecycleBin) load() ([]model.DeletedFile, error) {
	if err := b.life.Check(); err != nil {
		return nil, err
	}

	data, ok, err := b.kv.Get(keyRecycleBin)
	if err != nil {
		return nil, fmt.Errorf("reading recycle bin: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var entries []model.DeletedFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding recycle bin: %w", err)
	}

	cutoff := b.clock.Now().Add(-b.retention)
	kept := entries[:0]
	purged := 0
	for _, e := range entries {
		if e.DeletedAt.Before(cutoff) || e.DeletedAt.Equal(cutoff) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	if purged > 0 {
		if err := b.save(kept); err != nil {
			return nil, err
		}
		b.logger.Info("expired recycle entries purged", "count", purged)
	}
	return kept, nil
}

func (b *RecycleBin) save(entries []model.DeletedFile) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding recycle bin: %w", err)
	}
	if err := b.kv.Set(keyRecycleBin, data); err != nil {
		return fmt.Errorf("storing recycle bin: %w", err)
	}
	return nil
}
