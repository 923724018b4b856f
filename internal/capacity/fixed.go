package capacity

import "pv-go/internal/vault"

// FixedProvider reports constant capacity figures. Used in tests and on
// platforms without a statfs implementation.
type FixedProvider struct {
	Total     int64
	Available int64
}

var _ vault.CapacityProvider = (*FixedProvider)(nil)

func NewFixedProvider(total, available int64) *FixedProvider {
	return &FixedProvider{Total: total, Available: available}
}

func (p *FixedProvider) Capacity() (int64, int64, error) {
	return p.Total, p.Available, nil
}
