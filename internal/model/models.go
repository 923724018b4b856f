package model

import "time"

// FileType classifies a vault file by its payload kind.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeDocument FileType = "document"
	FileTypeOther    FileType = "other"
)

// CredentialMethod identifies the kind of unlock credential.
type CredentialMethod string

const (
	MethodPIN      CredentialMethod = "pin"
	MethodPattern  CredentialMethod = "pattern"
	MethodPassword CredentialMethod = "password"
)

// BackupType records where a backup artifact lives.
type BackupType string

const (
	BackupTypeLocal  BackupType = "local"
	BackupTypeCloud  BackupType = "cloud"
	BackupTypeManual BackupType = "manual"
)

// VaultFile is a single file tracked by the vault catalog.
// Payload holds the encrypted file content; plaintext is never persisted.
// FolderID is a weak reference: it either resolves to a live VaultFolder
// or is empty (root).
type VaultFile struct {
	ID           string    `json:"id"` // UUID
	Name         string    `json:"name"`
	Type         FileType  `json:"type"`
	Size         int64     `json:"size"` // plaintext size in bytes
	DateAdded    time.Time `json:"date_added"`
	DateModified time.Time `json:"date_modified"`
	Payload      []byte    `json:"payload"` // AES-GCM ciphertext
	FolderID     string    `json:"folder_id,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	IsFavorite   bool      `json:"is_favorite"`
}

// HasTag reports whether the file carries the given tag (case-sensitive).
func (f *VaultFile) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// VaultFolder is a node in the folder tree. ParentID empty means root.
type VaultFolder struct {
	ID          string    `json:"id"` // UUID
	Name        string    `json:"name"`
	DateCreated time.Time `json:"date_created"`
	ParentID    string    `json:"parent_id,omitempty"`
	FileCount   int       `json:"file_count"`
}

// DeletedFile is a soft-deleted VaultFile held in the recycle bin until
// restored or purged.
type DeletedFile struct {
	File             VaultFile `json:"file"`
	DeletedAt        time.Time `json:"deleted_at"`
	OriginalFolderID string    `json:"original_folder_id,omitempty"`
}

// Catalog is the whole-vault state persisted as a single value.
// Every mutation is a read-modify-write of the entire catalog.
type Catalog struct {
	Files   []VaultFile   `json:"files"`
	Folders []VaultFolder `json:"folders"`
}

// CredentialRecord stores the hash of an unlock credential.
// The plaintext credential is never stored or logged.
type CredentialRecord struct {
	Hash      string           `json:"hash"` // Argon2id, PHC string format
	Method    CredentialMethod `json:"method"`
	CreatedAt time.Time        `json:"created_at"`
}

// AttemptState tracks consecutive failed unlock attempts.
// Persisted so a lockout survives process restart.
// Count never exceeds the configured maximum.
type AttemptState struct {
	Count  int  `json:"count"`
	Locked bool `json:"locked"`
}

// BackupMetadata describes a backup artifact. Immutable once written,
// except for removal from history. Checksum is SHA-256 over the encrypted
// artifact bytes; a mismatch on restore means the artifact is corrupt.
type BackupMetadata struct {
	ID        string     `json:"id"` // UUID, also the artifact name stem
	Timestamp time.Time  `json:"timestamp"`
	Version   int        `json:"version"`
	FileCount int        `json:"file_count"`
	TotalSize int64      `json:"total_size"`
	Type      BackupType `json:"type"`
	Encrypted bool       `json:"encrypted"`
	Checksum  string     `json:"checksum"` // SHA-256 hex
}

// BackupPayload is the aggregate serialized into a backup artifact.
// The key slot travels with the backup so restored payloads remain
// decryptable even if the live vault key was changed after the backup.
type BackupPayload struct {
	Version  int           `json:"version"`
	Catalog  Catalog       `json:"catalog"`
	Recycle  []DeletedFile `json:"recycle,omitempty"`
	KeySlot  []byte        `json:"key_slot,omitempty"`
	Settings []byte        `json:"settings,omitempty"`
}

// BackupPayloadVersion is the current aggregate schema version.
const BackupPayloadVersion = 1

// StorageUsage reports vault space consumption for display.
type StorageUsage struct {
	UsedBytes      int64
	TotalBytes     int64
	AvailableBytes int64
	UsedPercent    float64
}
