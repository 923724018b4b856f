package vault_test

import (
	"errors"
	"testing"

	"pv-go/internal/blobstore"
	"pv-go/internal/keyvalue"
	"pv-go/internal/model"
	"pv-go/internal/testutil"
	"pv-go/internal/vault"
)

type governorFixture struct {
	kv        *keyvalue.MemoryStore
	creds     *vault.CredentialStore
	governor  *vault.AttemptGovernor
	intrusion *testutil.CapturingIntrusionLogger
	life      *vault.Lifecycle
}

func newGovernorFixture(t *testing.T, opts vault.GovernorOptions) *governorFixture {
	t.Helper()

	kv := keyvalue.NewMemoryStore()
	life := vault.NewLifecycle()
	logger := vault.NewNopLogger()
	creds := vault.NewCredentialStore(kv, testutil.FixedClock(), logger, life)
	if err := creds.Setup("1234", model.MethodPIN); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := creds.SetupRecoveryCode("recovery-code"); err != nil {
		t.Fatalf("SetupRecoveryCode() error = %v", err)
	}

	intrusion := testutil.NewCapturingIntrusionLogger()
	if opts.Intrusion == nil {
		opts.Intrusion = intrusion
	}
	return &governorFixture{
		kv:        kv,
		creds:     creds,
		governor:  vault.NewAttemptGovernor(kv, creds, logger, life, opts),
		intrusion: intrusion,
		life:      life,
	}
}

func TestAttemptGovernor_Authenticate(t *testing.T) {
	t.Run("success resets the failure count", func(t *testing.T) {
		f := newGovernorFixture(t, vault.GovernorOptions{MaxAttempts: 3})

		for i := 0; i < 2; i++ {
			ok, err := f.governor.Authenticate("wrong", model.MethodPIN)
			if err != nil || ok {
				t.Fatalf("Authenticate(wrong) = %v, %v", ok, err)
			}
		}

		ok, err := f.governor.Authenticate("1234", model.MethodPIN)
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !ok {
			t.Fatal("Authenticate() = false for the correct credential")
		}

		state, err := f.governor.State()
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state.Count != 0 || state.Locked {
			t.Errorf("state = %+v, want zeroed", state)
		}
	})

	t.Run("locks at the threshold and rejects the correct credential", func(t *testing.T) {
		f := newGovernorFixture(t, vault.GovernorOptions{MaxAttempts: 5})

		for i := 0; i < 5; i++ {
			if _, err := f.governor.Authenticate("wrong", model.MethodPIN); err != nil {
				t.Fatalf("attempt %d: error = %v", i+1, err)
			}
		}

		state, err := f.governor.State()
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if !state.Locked {
			t.Fatal("state not locked after max failures")
		}

		// While locked, even the right credential must be rejected without
		// being verified.
		_, err = f.governor.Authenticate("1234", model.MethodPIN)
		if !errors.Is(err, vault.ErrLockedOut) {
			t.Errorf("Authenticate() error = %v, want ErrLockedOut", err)
		}
	})

	t.Run("count never exceeds the threshold", func(t *testing.T) {
		f := newGovernorFixture(t, vault.GovernorOptions{MaxAttempts: 3})

		for i := 0; i < 3; i++ {
			if _, err := f.governor.Authenticate("wrong", model.MethodPIN); err != nil {
				t.Fatalf("attempt %d: error = %v", i+1, err)
			}
		}
		// Further attempts bounce off the lockout without touching the count.
		for i := 0; i < 4; i++ {
			f.governor.Authenticate("wrong", model.MethodPIN)
		}

		state, err := f.governor.State()
		if err != nil {
			t.Fatalf("State() error = %v", err)
		}
		if state.Count != 3 {
			t.Errorf("Count = %d, want clamped at 3", state.Count)
		}
	})

	t.Run("lockout reports a break-in event once", func(t *testing.T) {
		f := newGovernorFixture(t, vault.GovernorOptions{MaxAttempts: 2})

		for i := 0; i < 2; i++ {
			if _, err := f.governor.Authenticate("wrong", model.MethodPIN); err != nil {
				t.Fatalf("attempt %d: error = %v", i+1, err)
			}
		}

		events := f.intrusion.Events()
		if len(events) != 1 || events[0] != model.MethodPIN {
			t.Errorf("intrusion events = %v, want one pin event", events)
		}
	})

	t.Run("lockout survives a restart", func(t *testing.T) {
		f := newGovernorFixture(t, vault.GovernorOptions{MaxAttempts: 2})

		for i := 0; i < 2; i++ {
			if _, err := f.governor.Authenticate("wrong", model.MethodPIN); err != nil {
				t.Fatalf("attempt %d: error = %v", i+1, err)
			}
		}

		// A fresh governor over the same store sees the persisted lockout.
		reborn := vault.NewAttemptGovernor(f.kv, f.creds, vault.NewNopLogger(), vault.NewLifecycle(), vault.GovernorOptions{MaxAttempts: 2})
		_, err := reborn.Authenticate("1234", model.MethodPIN)
		if !errors.Is(err, vault.ErrLockedOut) {
			t.Errorf("Authenticate() after restart error = %v, want ErrLockedOut", err)
		}
	})
}

func TestAttemptGovernor_SelfDestruct(t *testing.T) {
	t.Run("threshold wipes the vault when enabled", func(t *testing.T) {
		kv := keyvalue.NewMemoryStore()
		blobs := blobstore.NewMemoryStore()
		life := vault.NewLifecycle()
		logger := vault.NewNopLogger()
		creds := vault.NewCredentialStore(kv, testutil.FixedClock(), logger, life)
		if err := creds.Setup("1234", model.MethodPIN); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}

		governor := vault.NewAttemptGovernor(kv, creds, logger, life, vault.GovernorOptions{
			MaxAttempts: 2,
			Destroyer:   vault.NewVaultDestroyer(kv, blobs, logger, life),
		})

		if _, err := governor.Authenticate("wrong", model.MethodPIN); err != nil {
			t.Fatalf("first attempt: error = %v", err)
		}
		_, err := governor.Authenticate("wrong", model.MethodPIN)
		if !errors.Is(err, vault.ErrSelfDestructed) {
			t.Fatalf("second attempt error = %v, want ErrSelfDestructed", err)
		}

		keys, err := kv.Keys("")
		if err != nil {
			t.Fatalf("Keys() error = %v", err)
		}
		if len(keys) != 0 {
			t.Errorf("store still holds keys after self-destruct: %v", keys)
		}

		// Every later operation reports the terminal state.
		_, err = governor.Authenticate("1234", model.MethodPIN)
		if !errors.Is(err, vault.ErrSelfDestructed) {
			t.Errorf("post-destruct Authenticate() error = %v, want ErrSelfDestructed", err)
		}
	})
}

func TestAttemptGovernor_ResetWithRecoveryCode(t *testing.T) {
	t.Run("clears a lockout", func(t *testing.T) {
		f := newGovernorFixture(t, vault.GovernorOptions{MaxAttempts: 2})

		for i := 0; i < 2; i++ {
			if _, err := f.governor.Authenticate("wrong", model.MethodPIN); err != nil {
				t.Fatalf("attempt %d: error = %v", i+1, err)
			}
		}

		if err := f.governor.ResetWithRecoveryCode("recovery-code"); err != nil {
			t.Fatalf("ResetWithRecoveryCode() error = %v", err)
		}

		ok, err := f.governor.Authenticate("1234", model.MethodPIN)
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !ok {
			t.Error("Authenticate() = false after reset")
		}
	})

	t.Run("rejects a wrong code", func(t *testing.T) {
		f := newGovernorFixture(t, vault.GovernorOptions{MaxAttempts: 2})

		if err := f.governor.ResetWithRecoveryCode("bogus"); err == nil {
			t.Error("ResetWithRecoveryCode() = nil for a bogus code")
		}
	})
}
