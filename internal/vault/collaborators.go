package vault

import (
	"io"

	"pv-go/internal/model"
)

// IntrusionLogger records break-in attempts when the vault locks.
// It is fire-and-forget: implementations must never block or fail the
// authentication flow, so the method returns nothing.
type IntrusionLogger interface {
	LogBreakInAttempt(kind model.CredentialMethod)
}

// NopIntrusionLogger discards break-in events. Used when no intrusion
// collaborator is configured.
type NopIntrusionLogger struct{}

func (NopIntrusionLogger) LogBreakInAttempt(model.CredentialMethod) {}

// CapacityProvider reports device storage capacity for usage display.
type CapacityProvider interface {
	// Capacity returns total and available bytes on the device volume.
	Capacity() (total int64, available int64, err error)
}

// PayloadCipher encrypts vault file payloads at rest under the vault-wide
// master key. Implementations are created per unlocked session.
type PayloadCipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// ArtifactCipher encrypts backup artifacts under a passphrase that is a
// separate secret from the vault's own key, so a backup stays decryptable
// even after the live vault key changes.
//
// Decrypt must fail with an error matching ErrDecryptionFailure when the
// passphrase is wrong, so callers can distinguish it from corruption.
type ArtifactCipher interface {
	Encrypt(passphrase string, r io.Reader, w io.Writer) error
	Decrypt(passphrase string, r io.Reader, w io.Writer) error
}

// Destroyer irreversibly erases all vault state. Wired into the
// AttemptGovernor when self-destruct is enabled.
type Destroyer interface {
	Destroy() error
}
