//go:build !unix

package capacity

import "pv-go/internal/vault"

// NewProvider returns a zero-capacity provider on platforms without statfs.
// Usage percentages then display as 0, which beats failing the whole store.
func NewProvider(string) vault.CapacityProvider {
	return NewFixedProvider(0, 0)
}
