package encryption

import (
	"bytes"
	"fmt"
	"io"

	"pv-go/internal/vault"
)

// testHeader makes test-cipher output clearly different from plaintext
// while remaining deterministic and reversible.
var testHeader = []byte("PVENC\x00\x00\x00")

// TestArtifactCipher is a trivially reversible cipher for tests. It writes
// a fixed header plus the passphrase length-prefixed, so decryption with a
// different passphrase fails the same way a real cipher would, without any
// crypto cost.
type TestArtifactCipher struct{}

var _ vault.ArtifactCipher = (*TestArtifactCipher)(nil)

func NewTestArtifactCipher() *TestArtifactCipher {
	return &TestArtifactCipher{}
}

func (*TestArtifactCipher) Encrypt(passphrase string, r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%04d%s", len(passphrase), passphrase); err != nil {
		return fmt.Errorf("writing passphrase marker: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (*TestArtifactCipher) Decrypt(passphrase string, r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: reading test header", vault.ErrDecryptionFailure)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("%w: invalid test header", vault.ErrDecryptionFailure)
	}

	var plen int
	if _, err := fmt.Fscanf(io.LimitReader(r, 4), "%04d", &plen); err != nil {
		return fmt.Errorf("%w: reading passphrase marker", vault.ErrDecryptionFailure)
	}
	marker := make([]byte, plen)
	if _, err := io.ReadFull(r, marker); err != nil {
		return fmt.Errorf("%w: reading passphrase marker", vault.ErrDecryptionFailure)
	}
	if string(marker) != passphrase {
		return fmt.Errorf("%w: wrong passphrase", vault.ErrDecryptionFailure)
	}

	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
