package vault

import (
	"fmt"
	"strings"
)

// VaultDestroyer irreversibly erases everything a vault instance owns:
// credential records, attempt state, key slot, catalog, recycle bin, backup
// history and local artifacts. There is deliberately no confirmation step:
// this exists as a defense against coercion, and a wipe that can be talked
// back is no wipe at all.
type VaultDestroyer struct {
	kv     KeyValue
	blobs  BlobStore
	logger Logger
	life   *Lifecycle
}

var _ Destroyer = (*VaultDestroyer)(nil)

func NewVaultDestroyer(kv KeyValue, blobs BlobStore, logger Logger, life *Lifecycle) *VaultDestroyer {
	return &VaultDestroyer{kv: kv, blobs: blobs, logger: logger, life: life}
}

// Destroy wipes all vault state and marks the instance destroyed. The
// lifecycle flag flips first so no operation can race a partially wiped
// store; the removals then proceed best-effort to completion.
func (d *VaultDestroyer) Destroy() error {
	d.life.MarkDestroyed()

	var firstErr error

	for _, prefix := range wipeKeyPrefixes {
		keys, err := d.kv.Keys(prefix)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("listing keys %q: %w", prefix, err)
			}
			continue
		}
		for _, k := range keys {
			if err := d.kv.Remove(k); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("removing key %q: %w", k, err)
			}
		}
	}

	names, err := d.blobs.List()
	if err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("listing artifacts: %w", err)
		}
	} else {
		for _, name := range names {
			if !strings.HasSuffix(name, artifactExt) {
				continue
			}
			if err := d.blobs.Delete(name); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("deleting artifact %q: %w", name, err)
			}
		}
	}

	d.logger.Warn("vault destroyed")
	return firstErr
}
