package testutil

import (
	"sync"

	"pv-go/internal/model"
)

// CapturingIntrusionLogger records break-in events for assertions.
type CapturingIntrusionLogger struct {
	mu     sync.Mutex
	events []model.CredentialMethod
}

func NewCapturingIntrusionLogger() *CapturingIntrusionLogger {
	return &CapturingIntrusionLogger{}
}

func (c *CapturingIntrusionLogger) LogBreakInAttempt(kind model.CredentialMethod) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, kind)
}

// Events returns a copy of the recorded events.
func (c *CapturingIntrusionLogger) Events() []model.CredentialMethod {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.CredentialMethod, len(c.events))
	copy(out, c.events)
	return out
}
