package encryption_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"pv-go/internal/encryption"
	"pv-go/internal/vault"
)

func ciphers() map[string]vault.ArtifactCipher {
	return map[string]vault.ArtifactCipher{
		"age":  encryption.NewAgeArtifactCipher(),
		"test": encryption.NewTestArtifactCipher(),
	}
}

func TestArtifactCiphers(t *testing.T) {
	for name, c := range ciphers() {
		t.Run(name, func(t *testing.T) {
			t.Run("round trip", func(t *testing.T) {
				plaintext := []byte("backup aggregate bytes")

				var artifact bytes.Buffer
				if err := c.Encrypt("passphrase", bytes.NewReader(plaintext), &artifact); err != nil {
					t.Fatalf("Encrypt() error = %v", err)
				}
				if bytes.Contains(artifact.Bytes(), plaintext) && name == "age" {
					t.Error("ciphertext contains plaintext")
				}

				var out bytes.Buffer
				if err := c.Decrypt("passphrase", bytes.NewReader(artifact.Bytes()), &out); err != nil {
					t.Fatalf("Decrypt() error = %v", err)
				}
				if !bytes.Equal(out.Bytes(), plaintext) {
					t.Errorf("Decrypt() = %q, want %q", out.Bytes(), plaintext)
				}
			})

			t.Run("wrong passphrase is ErrDecryptionFailure", func(t *testing.T) {
				var artifact bytes.Buffer
				if err := c.Encrypt("right", strings.NewReader("data"), &artifact); err != nil {
					t.Fatalf("Encrypt() error = %v", err)
				}

				var out bytes.Buffer
				err := c.Decrypt("wrong", bytes.NewReader(artifact.Bytes()), &out)
				if !errors.Is(err, vault.ErrDecryptionFailure) {
					t.Errorf("Decrypt() error = %v, want ErrDecryptionFailure", err)
				}
			})

			t.Run("garbage input is ErrDecryptionFailure", func(t *testing.T) {
				var out bytes.Buffer
				err := c.Decrypt("passphrase", strings.NewReader("not an artifact"), &out)
				if !errors.Is(err, vault.ErrDecryptionFailure) {
					t.Errorf("Decrypt() error = %v, want ErrDecryptionFailure", err)
				}
			})
		})
	}
}
