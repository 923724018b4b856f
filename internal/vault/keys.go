package vault

// Key names in the KeyValue store. Every value is a whole-value replace;
// Destroy removes all of them.
const (
	keyCredentialPrefix = "cred/"        // cred/<method> -> CredentialRecord JSON
	keyPrimaryMethod    = "cred/primary" // primary credential method name
	keyRecoveryCode     = "cred/recovery"
	keyAttemptState     = "auth/attempts"
	keyKeySlot          = "vault/keyslot"
	keyCatalog          = "vault/catalog"
	keyRecycleBin       = "vault/recycle"
	keyBackupHistory    = "backup/history"
	keySettings         = "settings"
)

// wipeKeyPrefixes covers every key family the vault owns.
var wipeKeyPrefixes = []string{"cred/", "auth/", "vault/", "backup/", "settings"}
