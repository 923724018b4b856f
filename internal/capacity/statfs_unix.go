//go:build unix

package capacity

import (
	"fmt"
	"syscall"

	"pv-go/internal/vault"
)

// NewProvider returns the statfs-backed provider for the volume holding
// path.
func NewProvider(path string) vault.CapacityProvider {
	return NewStatfsProvider(path)
}

// StatfsProvider reports capacity for the volume containing a given path.
type StatfsProvider struct {
	path string
}

var _ vault.CapacityProvider = (*StatfsProvider)(nil)

// NewStatfsProvider creates a provider for the volume holding path.
func NewStatfsProvider(path string) *StatfsProvider {
	return &StatfsProvider{path: path}
}

// Capacity returns total and available bytes on the volume.
func (p *StatfsProvider) Capacity() (int64, int64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(p.path, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", p.path, err)
	}

	bsize := int64(st.Bsize)
	total := int64(st.Blocks) * bsize
	available := int64(st.Bavail) * bsize
	return total, available, nil
}
