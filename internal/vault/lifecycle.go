package vault

import "sync/atomic"

// Lifecycle is shared by every component of one vault instance. Once the
// vault self-destructs the flag flips and all subsequent operations on the
// instance fail with ErrSelfDestructed. The transition is one-way.
type Lifecycle struct {
	destroyed atomic.Bool
}

func NewLifecycle() *Lifecycle { return &Lifecycle{} }

// Check returns ErrSelfDestructed once the vault has been destroyed.
func (l *Lifecycle) Check() error {
	if l.destroyed.Load() {
		return ErrSelfDestructed
	}
	return nil
}

// MarkDestroyed flips the vault into its terminal state.
func (l *Lifecycle) MarkDestroyed() {
	l.destroyed.Store(true)
}

// Destroyed reports whether the vault has been destroyed.
func (l *Lifecycle) Destroyed() bool {
	return l.destroyed.Load()
}
