package app_test

import (
	"errors"
	"testing"

	"pv-go/internal/app"
	"pv-go/internal/config"
	"pv-go/internal/model"
	"pv-go/internal/vault"
)

// testConfig returns a config wired entirely to in-memory backends.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.NewConfig("test-vault", base)
	cfg.MaxAttempts = 3
	cfg.Storage = config.StorageConfig{Type: "memory"}
	cfg.Blobs = config.BlobConfig{Type: "memory"}
	cfg.Cloud = config.CloudConfig{Type: "memory"}
	cfg.Backup = config.BackupConfig{Cipher: "test"}
	return cfg
}

func TestApp_SetupAndUnlock(t *testing.T) {
	t.Run("setup issues a recovery code and unlock succeeds", func(t *testing.T) {
		a, err := app.New(testConfig(t), "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Close()

		code, err := a.Setup("1234", model.MethodPIN)
		if err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if len(code) != 32 {
			t.Errorf("recovery code = %q, want 32 hex chars", code)
		}

		ok, err := a.Unlock("1234", model.MethodPIN)
		if err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
		if !ok {
			t.Fatal("Unlock() = false for the configured credential")
		}

		store, err := a.Store()
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		if _, err := store.AddFile([]byte("hi"), "hi.txt", model.FileTypeOther, ""); err != nil {
			t.Errorf("AddFile() after unlock error = %v", err)
		}
	})

	t.Run("second setup is rejected", func(t *testing.T) {
		a, err := app.New(testConfig(t), "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Close()

		if _, err := a.Setup("1234", model.MethodPIN); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if _, err := a.Setup("5678", model.MethodPIN); err == nil {
			t.Error("second Setup() = nil, want an error")
		}
	})

	t.Run("services are unavailable while locked", func(t *testing.T) {
		a, err := app.New(testConfig(t), "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Close()

		if _, err := a.Store(); err == nil {
			t.Error("Store() = nil error before unlock")
		}
		if _, err := a.Backups(); err == nil {
			t.Error("Backups() = nil error before unlock")
		}
		if _, err := a.Bin(); err == nil {
			t.Error("Bin() = nil error before unlock")
		}
	})

	t.Run("recycle bin is available after unlock", func(t *testing.T) {
		a, err := app.New(testConfig(t), "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Close()

		if _, err := a.Setup("1234", model.MethodPIN); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if _, err := a.Unlock("1234", model.MethodPIN); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}

		bin, err := a.Bin()
		if err != nil {
			t.Fatalf("Bin() error = %v", err)
		}
		entries, err := bin.List()
		if err != nil {
			t.Fatalf("bin.List() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("bin entries = %d, want 0", len(entries))
		}
	})

	t.Run("repeated failures lock the vault", func(t *testing.T) {
		a, err := app.New(testConfig(t), "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Close()

		if _, err := a.Setup("1234", model.MethodPIN); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		for i := 0; i < 3; i++ {
			if _, err := a.Unlock("wrong", model.MethodPIN); err != nil {
				t.Fatalf("Unlock() attempt %d error = %v", i+1, err)
			}
		}

		_, err = a.Unlock("1234", model.MethodPIN)
		if !errors.Is(err, vault.ErrLockedOut) {
			t.Errorf("Unlock() error = %v, want ErrLockedOut", err)
		}
	})

	t.Run("recovery code clears a lockout", func(t *testing.T) {
		a, err := app.New(testConfig(t), "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Close()

		code, err := a.Setup("1234", model.MethodPIN)
		if err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		for i := 0; i < 3; i++ {
			a.Unlock("wrong", model.MethodPIN)
		}

		if err := a.ResetLockout(code); err != nil {
			t.Fatalf("ResetLockout() error = %v", err)
		}
		ok, err := a.Unlock("1234", model.MethodPIN)
		if err != nil || !ok {
			t.Errorf("Unlock() after reset = %v, %v, want success", ok, err)
		}
	})
}

func TestApp_ChangeCredential(t *testing.T) {
	t.Run("payloads stay readable after the change", func(t *testing.T) {
		cfg := testConfig(t)
		// Storage must survive across App instances for this test, so use
		// sqlite in the temp dir instead of the in-memory store.
		cfg.Storage = config.StorageConfig{Type: "sqlite", DataDir: t.TempDir()}

		a, err := app.New(cfg, "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if _, err := a.Setup("1234", model.MethodPIN); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if _, err := a.Unlock("1234", model.MethodPIN); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
		store, err := a.Store()
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		file, err := store.AddFile([]byte("secret"), "s.txt", model.FileTypeOther, "")
		if err != nil {
			t.Fatalf("AddFile() error = %v", err)
		}

		ok, err := a.ChangeCredential("1234", "5678", model.MethodPIN)
		if err != nil || !ok {
			t.Fatalf("ChangeCredential() = %v, %v", ok, err)
		}
		if err := a.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		// A fresh session with the new credential can read the old payload.
		a2, err := app.New(cfg, "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a2.Close()

		ok, err = a2.Unlock("5678", model.MethodPIN)
		if err != nil || !ok {
			t.Fatalf("Unlock() with new credential = %v, %v", ok, err)
		}
		store2, err := a2.Store()
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		content, err := store2.GetFileContent(file.ID)
		if err != nil {
			t.Fatalf("GetFileContent() error = %v", err)
		}
		if string(content) != "secret" {
			t.Errorf("GetFileContent() = %q, want secret", content)
		}
	})

	t.Run("wrong old credentials count toward lockout", func(t *testing.T) {
		a, err := app.New(testConfig(t), "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Close()

		if _, err := a.Setup("1234", model.MethodPIN); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		for i := 0; i < 3; i++ {
			ok, err := a.ChangeCredential("wrong", "5678", model.MethodPIN)
			if err != nil {
				t.Fatalf("ChangeCredential() attempt %d error = %v", i+1, err)
			}
			if ok {
				t.Fatalf("ChangeCredential() attempt %d = true with the wrong old credential", i+1)
			}
		}

		state, err := a.AttemptState()
		if err != nil {
			t.Fatalf("AttemptState() error = %v", err)
		}
		if !state.Locked {
			t.Error("vault not locked after repeated wrong old credentials")
		}
		if _, err := a.Unlock("1234", model.MethodPIN); !errors.Is(err, vault.ErrLockedOut) {
			t.Errorf("Unlock() error = %v, want ErrLockedOut", err)
		}
	})

	t.Run("change is rejected while locked out", func(t *testing.T) {
		a, err := app.New(testConfig(t), "Test")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer a.Close()

		if _, err := a.Setup("1234", model.MethodPIN); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		for i := 0; i < 3; i++ {
			a.Unlock("wrong", model.MethodPIN)
		}

		// Even the correct old credential must not change anything while
		// the vault is locked.
		if _, err := a.ChangeCredential("1234", "5678", model.MethodPIN); !errors.Is(err, vault.ErrLockedOut) {
			t.Errorf("ChangeCredential() error = %v, want ErrLockedOut", err)
		}
		if _, err := a.ChangeCredential("wrong", "5678", model.MethodPIN); !errors.Is(err, vault.ErrLockedOut) {
			t.Errorf("ChangeCredential() with wrong credential error = %v, want ErrLockedOut", err)
		}

		state, err := a.AttemptState()
		if err != nil {
			t.Fatalf("AttemptState() error = %v", err)
		}
		if !state.Locked || state.Count != 3 {
			t.Errorf("attempt state = %+v, want locked with count 3", state)
		}
	})
}

func TestApp_Destroy(t *testing.T) {
	a, err := app.New(testConfig(t), "Test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	if _, err := a.Setup("1234", model.MethodPIN); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := a.Unlock("1234", model.MethodPIN); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	if err := a.Destroy(); err != nil {
		t.Fatalf("Destroy() error = %v", err)
	}

	_, err = a.Unlock("1234", model.MethodPIN)
	if !errors.Is(err, vault.ErrSelfDestructed) {
		t.Errorf("Unlock() after destroy error = %v, want ErrSelfDestructed", err)
	}
}
