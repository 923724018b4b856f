package encryption

import (
	"fmt"
	"io"

	"filippo.io/age"

	"pv-go/internal/vault"
)

// AgeArtifactCipher implements vault.ArtifactCipher using filippo.io/age
// scrypt passphrase encryption. The backup passphrase is the only secret;
// there is no key pair to manage, so a backup stays decryptable even after
// the live vault key changes.
type AgeArtifactCipher struct{}

var _ vault.ArtifactCipher = (*AgeArtifactCipher)(nil)

func NewAgeArtifactCipher() *AgeArtifactCipher {
	return &AgeArtifactCipher{}
}

// Encrypt reads plaintext from r and writes age ciphertext to w, encrypted
// under the passphrase with age's scrypt recipient.
func (*AgeArtifactCipher) Encrypt(passphrase string, r io.Reader, w io.Writer) error {
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt recipient: %w", err)
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}

	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}

	return nil
}

// Decrypt reads age ciphertext from r and writes plaintext to w. Any
// decryption error (in practice a wrong passphrase, since artifact
// integrity is checksum-verified before this point) matches
// vault.ErrDecryptionFailure.
func (*AgeArtifactCipher) Decrypt(passphrase string, r io.Reader, w io.Writer) error {
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("creating scrypt identity: %w", err)
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return fmt.Errorf("%w: %v", vault.ErrDecryptionFailure, err)
	}

	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("%w: %v", vault.ErrDecryptionFailure, err)
	}

	return nil
}
