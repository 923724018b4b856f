package vault

import (
	"context"
	"io"
)

// KeyValue is the narrow persistence interface the vault core is written
// against. Backends are string-keyed with opaque byte values and offer no
// transactions: every catalog write is a full-value replace.
type KeyValue interface {
	// Get returns the value for key. The second return is false when the
	// key does not exist (absence is not an error).
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Remove deletes key. Removing an absent key is a no-op.
	Remove(key string) error

	// Keys returns all keys with the given prefix. Used for wipe and
	// inspection, never as a query index.
	Keys(prefix string) ([]string, error)

	// Close releases the underlying store.
	Close() error
}

// BlobStore stores backup artifacts in an app-private location.
// Operations stream through io.Reader/io.Writer so large artifacts never
// need to be held in memory by the store itself.
type BlobStore interface {
	// Put stores a named artifact. size is the number of bytes that will be
	// read from r; implementations must reject short or long writes.
	Put(name string, r io.Reader, size int64) error

	// Get retrieves a named artifact and writes it to w.
	// Returns ErrNotFound if the artifact does not exist.
	Get(name string, w io.Writer) error

	// Delete removes a named artifact. Deleting an absent artifact is a no-op.
	Delete(name string) error

	// List returns the names of all stored artifacts.
	List() ([]string, error)
}

// CloudStorage is the remote blob collaborator used for cloud backups.
// Implementations map backend failures onto ErrCloudAuthExpired, ErrNotFound
// and ErrCloudTransient so callers can decide between re-authentication,
// giving up, and retrying.
type CloudStorage interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64) error
	Download(ctx context.Context, name string, w io.Writer) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}
