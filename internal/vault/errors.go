package vault

import "errors"

// Sentinel errors for the vault service layer. Callers match them with
// errors.Is. A failed credential check is NOT an error (Verify returns
// false), so there is deliberately no ErrCredentialMismatch here.
var (
	// ErrLockedOut is returned when an authentication attempt is rejected
	// before verification because the vault is locked.
	ErrLockedOut = errors.New("vault is locked out")

	// ErrSelfDestructed is returned by every operation after the vault has
	// been irreversibly destroyed.
	ErrSelfDestructed = errors.New("vault has self-destructed")

	// ErrIntegrityViolation means a backup artifact's checksum did not match
	// its metadata. The artifact is corrupt; the live vault is unaffected.
	ErrIntegrityViolation = errors.New("backup artifact failed integrity check")

	// ErrDecryptionFailure means an artifact was intact but could not be
	// decrypted, almost always a wrong passphrase. Distinct from
	// ErrIntegrityViolation so callers can re-prompt instead of re-download.
	ErrDecryptionFailure = errors.New("backup artifact could not be decrypted")

	// ErrNotFound is returned when a backup id, recycle-bin id, folder or
	// blob does not exist and the operation is not lenient about absence.
	ErrNotFound = errors.New("not found")

	// ErrNotConfigured is returned when an operation requires a credential
	// or key slot that has not been set up yet.
	ErrNotConfigured = errors.New("vault is not set up")

	// Cloud storage failure classes, mapped by CloudStorage implementations
	// so callers can tell re-authentication from retryable conditions.
	ErrCloudAuthExpired = errors.New("cloud storage authentication expired")
	ErrCloudTransient   = errors.New("transient cloud storage failure")
)
