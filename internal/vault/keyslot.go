package vault

import (
	"fmt"

	"pv-go/internal/crypto"
)

// KeySlotManager owns the vault-wide master key. The key is generated once
// at setup, wrapped under a KEK derived from the unlock credential, and the
// wrapped slot is persisted. Unlocking returns the raw master key for the
// session; callers should clear it when done.
type KeySlotManager struct {
	kv   KeyValue
	life *Lifecycle
}

func NewKeySlotManager(kv KeyValue, life *Lifecycle) *KeySlotManager {
	return &KeySlotManager{kv: kv, life: life}
}

// Initialize generates a fresh master key, wraps it under the credential and
// persists the slot. Fails if a slot already exists; re-keying an existing
// vault must go through Rewrap so the old key is not silently lost.
func (m *KeySlotManager) Initialize(credential string) error {
	if err := m.life.Check(); err != nil {
		return err
	}

	_, exists, err := m.kv.Get(keyKeySlot)
	if err != nil {
		return fmt.Errorf("checking key slot: %w", err)
	}
	if exists {
		return fmt.Errorf("key slot already initialized")
	}

	master, err := crypto.NewMasterKey()
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(master)

	slot, err := crypto.WrapKey(master, credential)
	if err != nil {
		return err
	}
	if err := m.kv.Set(keyKeySlot, slot); err != nil {
		return fmt.Errorf("storing key slot: %w", err)
	}
	return nil
}

// Unlock unwraps the master key with the credential.
func (m *KeySlotManager) Unlock(credential string) ([]byte, error) {
	if err := m.life.Check(); err != nil {
		return nil, err
	}

	slot, ok, err := m.kv.Get(keyKeySlot)
	if err != nil {
		return nil, fmt.Errorf("reading key slot: %w", err)
	}
	if !ok {
		return nil, ErrNotConfigured
	}
	master, err := crypto.UnwrapKey(slot, credential)
	if err != nil {
		return nil, fmt.Errorf("unlocking key slot: %w", err)
	}
	return master, nil
}

// Rewrap re-wraps the master key under a new credential. Used on credential
// change; the master key itself does not change, so existing payloads stay
// readable.
func (m *KeySlotManager) Rewrap(oldCredential, newCredential string) error {
	master, err := m.Unlock(oldCredential)
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(master)

	slot, err := crypto.WrapKey(master, newCredential)
	if err != nil {
		return err
	}
	if err := m.kv.Set(keyKeySlot, slot); err != nil {
		return fmt.Errorf("storing rewrapped key slot: %w", err)
	}
	return nil
}

// Export returns the serialized wrapped slot for inclusion in backups.
func (m *KeySlotManager) Export() ([]byte, error) {
	if err := m.life.Check(); err != nil {
		return nil, err
	}
	slot, ok, err := m.kv.Get(keyKeySlot)
	if err != nil {
		return nil, fmt.Errorf("reading key slot: %w", err)
	}
	if !ok {
		return nil, ErrNotConfigured
	}
	return slot, nil
}
