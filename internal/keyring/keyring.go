// Package keyring caches the unlock credential in the OS keyring so the CLI
// can offer a "remember me" flow. Entirely optional: the vault core never
// touches it.
package keyring

import (
	"github.com/zalando/go-keyring"
)

const serviceName = "pv"

// SaveCredential stores an unlock credential in the OS keyring.
func SaveCredential(vaultID string, credential string) error {
	return keyring.Set(serviceName, vaultID, credential)
}

// GetCredential retrieves an unlock credential from the OS keyring.
func GetCredential(vaultID string) (string, error) {
	return keyring.Get(serviceName, vaultID)
}

// DeleteCredential removes an unlock credential from the OS keyring.
func DeleteCredential(vaultID string) error {
	return keyring.Delete(serviceName, vaultID)
}

// HasCredential checks if a credential is stored in the keyring.
func HasCredential(vaultID string) bool {
	_, err := keyring.Get(serviceName, vaultID)
	return err == nil
}
