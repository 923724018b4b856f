package vault

import (
	"encoding/json"
	"fmt"

	"pv-go/internal/crypto"
	"pv-go/internal/model"
)

// CredentialStore hashes and verifies unlock credentials. Only the Argon2id
// hash is persisted; the plaintext credential never is, and it is never
// logged or returned.
//
// Verify is a primitive for the AttemptGovernor. Callers authenticate
// through the governor so lockout applies and failures are counted.
//
// Method-specific records may coexist (a PIN and a pattern, say), but
// exactly one method is primary at a time.
type CredentialStore struct {
	kv     KeyValue
	clock  Clock
	logger Logger
	life   *Lifecycle
}

// NewCredentialStore creates a CredentialStore over the given key-value
// backend.
func NewCredentialStore(kv KeyValue, clock Clock, logger Logger, life *Lifecycle) *CredentialStore {
	return &CredentialStore{kv: kv, clock: clock, logger: logger, life: life}
}

// Setup hashes the credential and persists its record, overwriting any prior
// record for the method, and marks the method primary.
func (s *CredentialStore) Setup(credential string, method model.CredentialMethod) error {
	if err := s.life.Check(); err != nil {
		return err
	}

	hash, err := crypto.HashCredential(credential)
	if err != nil {
		return fmt.Errorf("hashing credential: %w", err)
	}

	record := model.CredentialRecord{
		Hash:      hash,
		Method:    method,
		CreatedAt: s.clock.Now(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding credential record: %w", err)
	}

	if err := s.kv.Set(keyCredentialPrefix+string(method), data); err != nil {
		return fmt.Errorf("storing credential record: %w", err)
	}
	if err := s.kv.Set(keyPrimaryMethod, []byte(method)); err != nil {
		return fmt.Errorf("storing primary method: %w", err)
	}

	s.logger.Info("credential configured", "method", method)
	return nil
}

// Verify recomputes the hash and compares it against the stored record.
// A mismatch is (false, nil): an expected, frequent outcome, not an error.
func (s *CredentialStore) Verify(credential string, method model.CredentialMethod) (bool, error) {
	if err := s.life.Check(); err != nil {
		return false, err
	}

	record, err := s.record(method)
	if err != nil {
		return false, err
	}

	ok, err := crypto.VerifyCredential(credential, record.Hash)
	if err != nil {
		return false, fmt.Errorf("verifying credential: %w", err)
	}
	return ok, nil
}

// Primary returns the currently primary credential method.
func (s *CredentialStore) Primary() (model.CredentialMethod, error) {
	if err := s.life.Check(); err != nil {
		return "", err
	}
	data, ok, err := s.kv.Get(keyPrimaryMethod)
	if err != nil {
		return "", fmt.Errorf("reading primary method: %w", err)
	}
	if !ok {
		return "", ErrNotConfigured
	}
	return model.CredentialMethod(data), nil
}

// IsConfigured reports whether any primary credential has been set up.
func (s *CredentialStore) IsConfigured() (bool, error) {
	if err := s.life.Check(); err != nil {
		return false, err
	}
	_, ok, err := s.kv.Get(keyPrimaryMethod)
	if err != nil {
		return false, fmt.Errorf("reading primary method: %w", err)
	}
	return ok, nil
}

// SetupRecoveryCode stores the hash of an out-of-band recovery code used to
// clear a lockout without a credential match.
func (s *CredentialStore) SetupRecoveryCode(code string) error {
	if err := s.life.Check(); err != nil {
		return err
	}
	hash, err := crypto.HashCredential(code)
	if err != nil {
		return fmt.Errorf("hashing recovery code: %w", err)
	}
	if err := s.kv.Set(keyRecoveryCode, []byte(hash)); err != nil {
		return fmt.Errorf("storing recovery code: %w", err)
	}
	return nil
}

// VerifyRecoveryCode checks a recovery code against the stored hash.
func (s *CredentialStore) VerifyRecoveryCode(code string) (bool, error) {
	if err := s.life.Check(); err != nil {
		return false, err
	}
	data, ok, err := s.kv.Get(keyRecoveryCode)
	if err != nil {
		return false, fmt.Errorf("reading recovery code: %w", err)
	}
	if !ok {
		return false, ErrNotConfigured
	}
	match, err := crypto.VerifyCredential(code, string(data))
	if err != nil {
		return false, fmt.Errorf("verifying recovery code: %w", err)
	}
	return match, nil
}

func (s *CredentialStore) record(method model.CredentialMethod) (*model.CredentialRecord, error) {
	data, ok, err := s.kv.Get(keyCredentialPrefix + string(method))
	if err != nil {
		return nil, fmt.Errorf("reading credential record: %w", err)
	}
	if !ok {
		return nil, ErrNotConfigured
	}
	var record model.CredentialRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decoding credential record: %w", err)
	}
	return &record, nil
}
