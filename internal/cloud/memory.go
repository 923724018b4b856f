package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"pv-go/internal/vault"
)

// MemoryStorage is an in-memory CloudStorage for testing. FailNext injects
// one classified failure into the next operation, which is how transient
// retry and auth-expiry paths get exercised.
type MemoryStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
	next  error
}

var _ vault.CloudStorage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string][]byte)}
}

// FailNext makes the next operation fail with err, then clears the fault.
func (m *MemoryStorage) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next = err
}

func (m *MemoryStorage) takeFault() error {
	err := m.next
	m.next = nil
	return err
}

func (m *MemoryStorage) Upload(_ context.Context, name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return err
	}
	m.blobs[name] = data
	return nil
}

func (m *MemoryStorage) Download(_ context.Context, name string, w io.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return err
	}

	data, ok := m.blobs[name]
	if !ok {
		return fmt.Errorf("blob %s: %w", name, vault.ErrNotFound)
	}
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing download: %w", err)
	}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return err
	}
	if _, ok := m.blobs[name]; !ok {
		return fmt.Errorf("blob %s: %w", name, vault.ErrNotFound)
	}
	delete(m.blobs, name)
	return nil
}

func (m *MemoryStorage) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(m.blobs))
	for name := range m.blobs {
		names = append(names, name)
	}
	return names, nil
}
