package crypto

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
)

// keySlot is the serialized form of a wrapped master key. The master key is
// sealed with AES-GCM under a KEK derived from the unlock credential, so the
// slot is safe to persist next to the catalog it protects.
type keySlot struct {
	Salt       []byte `json:"salt"`
	Iterations int    `json:"iterations"`
	Wrapped    []byte `json:"wrapped"` // GCM(nonce || ciphertext) of the master key
}

// WrapKey seals the master key under a KEK derived from credential and
// returns the serialized key slot.
func WrapKey(master []byte, credential string) ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating slot salt: %w", err)
	}

	kek := DeriveKey(credential, salt, DefaultIters)
	defer ClearBytes(kek)

	wrapped, err := NewGCMCipher(kek).Encrypt(master)
	if err != nil {
		return nil, fmt.Errorf("wrapping master key: %w", err)
	}

	slot := keySlot{Salt: salt, Iterations: DefaultIters, Wrapped: wrapped}
	data, err := json.Marshal(slot)
	if err != nil {
		return nil, fmt.Errorf("encoding key slot: %w", err)
	}
	return data, nil
}

// UnwrapKey opens a serialized key slot with the credential and returns the
// master key. Returns ErrAuthFailed when the credential is wrong.
func UnwrapKey(slotData []byte, credential string) ([]byte, error) {
	var slot keySlot
	if err := json.Unmarshal(slotData, &slot); err != nil {
		return nil, fmt.Errorf("decoding key slot: %w", err)
	}

	kek := DeriveKey(credential, slot.Salt, slot.Iterations)
	defer ClearBytes(kek)

	master, err := NewGCMCipher(kek).Decrypt(slot.Wrapped)
	if err != nil {
		return nil, err
	}
	return master, nil
}
