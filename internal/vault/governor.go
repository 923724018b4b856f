package vault

import (
	"encoding/json"
	"fmt"
	"sync"

	"pv-go/internal/model"
)

// DefaultMaxAttempts is the lockout threshold for consecutive failures.
const DefaultMaxAttempts = 5

// AttemptGovernor tracks consecutive failed unlock attempts and enforces
// lockout. State moves Unlocked -> Counting -> Locked as failures accumulate,
// with Destroyed as an orthogonal terminal state when self-destruct is
// enabled. The attempt state is persisted so a lockout survives restart.
//
// All attempts are serialized through an internal mutex; two concurrent
// failures cannot both observe a pre-increment count.
type AttemptGovernor struct {
	kv          KeyValue
	creds       *CredentialStore
	intrusion   IntrusionLogger
	destroyer   Destroyer
	logger      Logger
	life        *Lifecycle
	maxAttempts int

	mu sync.Mutex
}

// GovernorOptions configures an AttemptGovernor.
type GovernorOptions struct {
	// MaxAttempts is the lockout threshold; 0 means DefaultMaxAttempts.
	MaxAttempts int
	// Destroyer, when non-nil, enables self-destruct: reaching the lockout
	// threshold immediately and irreversibly erases the vault.
	Destroyer Destroyer
	// Intrusion receives break-in events at lockout; nil means discard.
	Intrusion IntrusionLogger
}

// NewAttemptGovernor creates a governor over the given credential store.
func NewAttemptGovernor(kv KeyValue, creds *CredentialStore, logger Logger, life *Lifecycle, opts GovernorOptions) *AttemptGovernor {
	max := opts.MaxAttempts
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	intrusion := opts.Intrusion
	if intrusion == nil {
		intrusion = NopIntrusionLogger{}
	}
	return &AttemptGovernor{
		kv:          kv,
		creds:       creds,
		intrusion:   intrusion,
		destroyer:   opts.Destroyer,
		logger:      logger,
		life:        life,
		maxAttempts: max,
	}
}

// MaxAttempts returns the configured lockout threshold.
func (g *AttemptGovernor) MaxAttempts() int { return g.maxAttempts }

// State returns the persisted attempt state.
func (g *AttemptGovernor) State() (model.AttemptState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.life.Check(); err != nil {
		return model.AttemptState{}, err
	}
	return g.loadState()
}

// Authenticate runs one gated unlock attempt. The credential is verified
// only when the vault is not locked; while locked every attempt is rejected
// outright with ErrLockedOut, correct credential or not.
//
// On success the failure count resets to zero: one success erases all prior
// failures. On failure the count increments; reaching the threshold locks
// the vault, reports a break-in event, and, when self-destruct is enabled,
// immediately destroys all vault data with no confirmation step.
func (g *AttemptGovernor) Authenticate(credential string, method model.CredentialMethod) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.life.Check(); err != nil {
		return false, err
	}

	state, err := g.loadState()
	if err != nil {
		return false, err
	}
	if state.Locked {
		return false, ErrLockedOut
	}

	ok, err := g.creds.Verify(credential, method)
	if err != nil {
		return false, err
	}

	if ok {
		if err := g.saveState(model.AttemptState{}); err != nil {
			return false, err
		}
		return true, nil
	}

	state.Count++
	if state.Count >= g.maxAttempts {
		state.Count = g.maxAttempts // count never exceeds the threshold
		state.Locked = true
	}
	if err := g.saveState(state); err != nil {
		return false, err
	}

	if state.Locked {
		g.logger.Warn("vault locked after repeated failures", "attempts", state.Count, "method", method)
		// Fire-and-forget: the intrusion collaborator must never block or
		// fail the authentication flow.
		g.intrusion.LogBreakInAttempt(method)

		if g.destroyer != nil {
			if err := g.destroyer.Destroy(); err != nil {
				g.logger.Error("self-destruct failed", "error", err)
				return false, fmt.Errorf("self-destruct: %w", err)
			}
			return false, ErrSelfDestructed
		}
	}

	return false, nil
}

// ResetWithRecoveryCode clears a lockout using the out-of-band recovery code
// issued at setup. This is the only path out of Locked that does not go
// through a successful credential verify.
func (g *AttemptGovernor) ResetWithRecoveryCode(code string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.life.Check(); err != nil {
		return err
	}

	ok, err := g.creds.VerifyRecoveryCode(code)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("recovery code does not match")
	}

	if err := g.saveState(model.AttemptState{}); err != nil {
		return err
	}
	g.logger.Info("lockout cleared with recovery code")
	return nil
}

func (g *AttemptGovernor) loadState() (model.AttemptState, error) {
	data, ok, err := g.kv.Get(keyAttemptState)
	if err != nil {
		return model.AttemptState{}, fmt.Errorf("reading attempt state: %w", err)
	}
	if !ok {
		return model.AttemptState{}, nil
	}
	var state model.AttemptState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.AttemptState{}, fmt.Errorf("decoding attempt state: %w", err)
	}
	return state, nil
}

func (g *AttemptGovernor) saveState(state model.AttemptState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding attempt state: %w", err)
	}
	if err := g.kv.Set(keyAttemptState, data); err != nil {
		return fmt.Errorf("storing attempt state: %w", err)
	}
	return nil
}
