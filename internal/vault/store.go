package vault

import (
	"encoding/json"
	"fmt"
	"iter"
	"strings"
	"sync"

	"pv-go/internal/model"
)

// VaultStore owns the catalog of files and folders. Payloads are encrypted
// at rest under the vault-wide master key; the catalog is persisted as a
// single value, so every mutation is a read-modify-write of the whole
// catalog guarded by a mutex.
type VaultStore struct {
	kv       KeyValue
	cipher   PayloadCipher
	bin      *RecycleBin
	capacity CapacityProvider
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	life     *Lifecycle

	mu sync.Mutex
}

// NewVaultStore creates a VaultStore. The cipher must already be unlocked
// with the session's master key; bin receives soft-deleted files.
func NewVaultStore(kv KeyValue, cipher PayloadCipher, bin *RecycleBin, capacity CapacityProvider, logger Logger, clock Clock, idgen IDGenerator, life *Lifecycle) *VaultStore {
	return &VaultStore{
		kv:       kv,
		cipher:   cipher,
		bin:      bin,
		capacity: capacity,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		life:     life,
	}
}

// AddFile encrypts rawBytes and appends a new file to the catalog.
// folderID must resolve to a live folder or be empty (root).
func (s *VaultStore) AddFile(rawBytes []byte, name string, ftype model.FileType, folderID string) (*model.VaultFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}

	if folderID != "" && findFolder(catalog, folderID) == nil {
		return nil, fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}

	payload, err := s.cipher.Encrypt(rawBytes)
	if err != nil {
		return nil, fmt.Errorf("encrypting payload: %w", err)
	}

	now := s.clock.Now()
	file := model.VaultFile{
		ID:           s.idgen.New(),
		Name:         name,
		Type:         ftype,
		Size:         int64(len(rawBytes)),
		DateAdded:    now,
		DateModified: now,
		Payload:      payload,
		FolderID:     folderID,
	}
	catalog.Files = append(catalog.Files, file)

	if err := s.saveCatalog(catalog); err != nil {
		return nil, err
	}

	s.logger.Info("file added", "name", name, "size", file.Size)
	return &file, nil
}

// GetFileContent decrypts and returns the plaintext payload of a file.
func (s *VaultStore) GetFileContent(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	file := findFile(catalog, id)
	if file == nil {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}

	plaintext, err := s.cipher.Decrypt(file.Payload)
	if err != nil {
		return nil, fmt.Errorf("decrypting payload: %w", err)
	}
	return plaintext, nil
}

// ListFiles returns all files in the catalog.
func (s *VaultStore) ListFiles() ([]model.VaultFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	return catalog.Files, nil
}

// ListFolders returns all folders in the catalog.
func (s *VaultStore) ListFolders() ([]model.VaultFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	return catalog.Folders, nil
}

// DeleteFile removes a file from the live catalog. When permanent is false
// the file is handed to the recycle bin for the retention window; when true
// it is destroyed outright. Deleting a nonexistent id is a no-op; a
// concurrent deletion elsewhere in the session is a benign race.
func (s *VaultStore) DeleteFile(id string, permanent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return err
	}

	idx := -1
	for i := range catalog.Files {
		if catalog.Files[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	file := catalog.Files[idx]
	if !permanent {
		if err := s.bin.Add(file); err != nil {
			return fmt.Errorf("moving to recycle bin: %w", err)
		}
	}

	catalog.Files = append(catalog.Files[:idx], catalog.Files[idx+1:]...)
	if err := s.saveCatalog(catalog); err != nil {
		return err
	}

	s.logger.Info("file deleted", "id", id, "permanent", permanent)
	return nil
}

// RestoreFromBin pulls a soft-deleted file back into the live catalog.
// If its original folder no longer exists the file lands at the root.
func (s *VaultStore) RestoreFromBin(id string) (*model.VaultFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.bin.Restore(id)
	if err != nil {
		return nil, err
	}

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}

	file := deleted.File

	// An interrupted soft delete can leave the record both live and in the
	// bin. The live record wins; the bin entry has already been dropped.
	for i := range catalog.Files {
		if catalog.Files[i].ID == file.ID {
			s.logger.Warn("recycled file still present in catalog", "id", id)
			return &catalog.Files[i], nil
		}
	}

	file.FolderID = deleted.OriginalFolderID
	if file.FolderID != "" && findFolder(catalog, file.FolderID) == nil {
		file.FolderID = ""
	}
	catalog.Files = append(catalog.Files, file)

	if err := s.saveCatalog(catalog); err != nil {
		return nil, err
	}

	s.logger.Info("file restored from recycle bin", "id", id)
	return &file, nil
}

// MoveFile moves a file to another folder (empty folderID means root).
// A pure move does not touch dateModified.
func (s *VaultStore) MoveFile(id, folderID string) error {
	return s.MoveFiles([]string{id}, folderID)
}

// MoveFiles moves several files to another folder in one catalog write.
func (s *VaultStore) MoveFiles(ids []string, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return err
	}
	if folderID != "" && findFolder(catalog, folderID) == nil {
		return fmt.Errorf("folder %s: %w", folderID, ErrNotFound)
	}

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range catalog.Files {
		if want[catalog.Files[i].ID] {
			catalog.Files[i].FolderID = folderID
		}
	}

	return s.saveCatalog(catalog)
}

// RenameFile renames a file and bumps dateModified.
func (s *VaultStore) RenameFile(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateFile(id, func(f *model.VaultFile) {
		f.Name = name
		f.DateModified = s.clock.Now()
	})
}

// ToggleFavorite flips the favorite flag and returns the new value.
func (s *VaultStore) ToggleFavorite(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fav bool
	err := s.mutateFile(id, func(f *model.VaultFile) {
		f.IsFavorite = !f.IsFavorite
		f.DateModified = s.clock.Now()
		fav = f.IsFavorite
	})
	return fav, err
}

// AddTag adds a tag to a file. Adding a tag the file already carries is a
// no-op.
func (s *VaultStore) AddTag(id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateFile(id, func(f *model.VaultFile) {
		if f.HasTag(tag) {
			return
		}
		f.Tags = append(f.Tags, tag)
		f.DateModified = s.clock.Now()
	})
}

// RemoveTag removes a tag from a file. Removing an absent tag is a no-op.
func (s *VaultStore) RemoveTag(id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutateFile(id, func(f *model.VaultFile) {
		for i, t := range f.Tags {
			if t == tag {
				f.Tags = append(f.Tags[:i], f.Tags[i+1:]...)
				f.DateModified = s.clock.Now()
				return
			}
		}
	})
}

// AddFolder creates a folder. parentID must resolve or be empty (root).
func (s *VaultStore) AddFolder(name, parentID string) (*model.VaultFolder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, err
	}
	if parentID != "" && findFolder(catalog, parentID) == nil {
		return nil, fmt.Errorf("parent folder %s: %w", parentID, ErrNotFound)
	}

	folder := model.VaultFolder{
		ID:          s.idgen.New(),
		Name:        name,
		DateCreated: s.clock.Now(),
		ParentID:    parentID,
	}
	catalog.Folders = append(catalog.Folders, folder)

	if err := s.saveCatalog(catalog); err != nil {
		return nil, err
	}
	return &folder, nil
}

// RenameFolder renames a folder.
func (s *VaultStore) RenameFolder(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return err
	}
	folder := findFolder(catalog, id)
	if folder == nil {
		return fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}
	folder.Name = name
	return s.saveCatalog(catalog)
}

// DeleteFolder removes a folder node and PERMANENTLY deletes every file
// whose folderId equals it. Unlike DeleteFile, nothing passes through the
// recycle bin; folder deletion is destructive. Subfolders are not
// recursed into; orphans are re-rooted on the next catalog load.
func (s *VaultStore) DeleteFolder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return err
	}
	if findFolder(catalog, id) == nil {
		return fmt.Errorf("folder %s: %w", id, ErrNotFound)
	}

	kept := catalog.Files[:0]
	removed := 0
	for _, f := range catalog.Files {
		if f.FolderID == id {
			removed++
			continue
		}
		kept = append(kept, f)
	}
	catalog.Files = kept

	for i := range catalog.Folders {
		if catalog.Folders[i].ID == id {
			catalog.Folders = append(catalog.Folders[:i], catalog.Folders[i+1:]...)
			break
		}
	}

	if err := s.saveCatalog(catalog); err != nil {
		return err
	}

	s.logger.Warn("folder deleted with contents", "id", id, "files_destroyed", removed)
	return nil
}

// SearchFiles returns a lazy, restartable sequence of files whose name or
// tags contain the query, case-insensitively. The scan runs over a snapshot
// taken at call time; there is no persisted index.
func (s *VaultStore) SearchFiles(query string) (iter.Seq[model.VaultFile], error) {
	s.mu.Lock()
	catalog, err := s.loadCatalog()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	return func(yield func(model.VaultFile) bool) {
		for _, f := range catalog.Files {
			if !matchesQuery(&f, needle) {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}, nil
}

// StorageUsage sums tracked file sizes and combines them with the device
// capacity collaborator.
func (s *VaultStore) StorageUsage() (model.StorageUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return model.StorageUsage{}, err
	}

	var used int64
	for _, f := range catalog.Files {
		used += f.Size
	}

	total, available, err := s.capacity.Capacity()
	if err != nil {
		return model.StorageUsage{}, fmt.Errorf("querying device capacity: %w", err)
	}

	usage := model.StorageUsage{
		UsedBytes:      used,
		TotalBytes:     total,
		AvailableBytes: available,
	}
	if total > 0 {
		usage.UsedPercent = float64(used) / float64(total) * 100
	}
	return usage, nil
}

// Snapshot returns the current catalog and recycle-bin contents for backup.
func (s *VaultStore) Snapshot() (model.Catalog, []model.DeletedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog, err := s.loadCatalog()
	if err != nil {
		return model.Catalog{}, nil, err
	}
	deleted, err := s.bin.entries()
	if err != nil {
		return model.Catalog{}, nil, err
	}
	return *catalog, deleted, nil
}

// Commit replaces the live catalog and recycle bin with restored data.
// Each value is written whole, so a restore that reaches Commit either
// applies fully or, on the first failed write, leaves a coherent prior
// catalog in place.
func (s *VaultStore) Commit(catalog model.Catalog, recycle []model.DeletedFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveCatalog(&catalog); err != nil {
		return err
	}
	return s.bin.replace(recycle)
}

// mutateFile applies fn to the file with the given id and persists the
// catalog. Caller holds s.mu.
func (s *VaultStore) mutateFile(id string, fn func(*model.VaultFile)) error {
	catalog, err := s.loadCatalog()
	if err != nil {
		return err
	}
	file := findFile(catalog, id)
	if file == nil {
		return fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	fn(file)
	return s.saveCatalog(catalog)
}

// loadCatalog reads and normalizes the catalog. Folders whose parent no
// longer resolves are re-rooted, and folder file counts are recomputed, so
// every caller sees consistent folder references.
func (s *VaultStore) loadCatalog() (*model.Catalog, error) {
	if err := s.life.Check(); err != nil {
		return nil, err
	}

	data, ok, err := s.kv.Get(keyCatalog)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	catalog := &model.Catalog{}
	if ok {
		if err := json.Unmarshal(data, catalog); err != nil {
			return nil, fmt.Errorf("decoding catalog: %w", err)
		}
	}
	normalizeCatalog(catalog)
	return catalog, nil
}

// saveCatalog persists the catalog as one whole-value replace. The write is
// never silently retried: a partial prior failure must not be masked.
func (s *VaultStore) saveCatalog(catalog *model.Catalog) error {
	normalizeCatalog(catalog)
	data, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	if err := s.kv.Set(keyCatalog, data); err != nil {
		return fmt.Errorf("storing catalog: %w", err)
	}
	return nil
}

func normalizeCatalog(c *model.Catalog) {
	folders := make(map[string]int, len(c.Folders))
	for i := range c.Folders {
		folders[c.Folders[i].ID] = i
		c.Folders[i].FileCount = 0
	}
	for i := range c.Folders {
		if p := c.Folders[i].ParentID; p != "" {
			if _, ok := folders[p]; !ok {
				c.Folders[i].ParentID = ""
			}
		}
	}
	for i := range c.Files {
		if fid := c.Files[i].FolderID; fid != "" {
			if idx, ok := folders[fid]; ok {
				c.Folders[idx].FileCount++
			} else {
				c.Files[i].FolderID = ""
			}
		}
	}
}

func findFile(c *model.Catalog, id string) *model.VaultFile {
	for i := range c.Files {
		if c.Files[i].ID == id {
			return &c.Files[i]
		}
	}
	return nil
}

func findFolder(c *model.Catalog, id string) *model.VaultFolder {
	for i := range c.Folders {
		if c.Folders[i].ID == id {
			return &c.Folders[i]
		}
	}
	return nil
}

func matchesQuery(f *model.VaultFile, needle string) bool {
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(f.Name), needle) {
		return true
	}
	for _, t := range f.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}
