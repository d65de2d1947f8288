package jobs

import (
	"sync"
	"time"
)

// ConfirmTimeout is how long a cancel request waits for confirmation.
const ConfirmTimeout = 3 * time.Second

// Confirmations tracks jobs whose cancel button was pressed once.
type Confirmations struct {
	mu      sync.Mutex
	timeout time.Duration
	now     func() time.Time
	pending map[int]time.Time
}

// NewConfirmations creates a tracker. A non-positive timeout uses
// ConfirmTimeout and a nil clock uses time.Now.
func NewConfirmations(timeout time.Duration, now func() time.Time) *Confirmations {
	if timeout <= 0 {
		timeout = ConfirmTimeout
	}
	if now == nil {
		now = time.Now
	}
	return &Confirmations{timeout: timeout, now: now, pending: make(map[int]time.Time)}
}

// Toggle handles a press of the cancel button. The first press starts a
// confirmation and returns true; a second press within the window withdraws
// it and returns false.
func (c *Confirmations) Toggle(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingLocked(id) {
		delete(c.pending, id)
		return false
	}
	c.pending[id] = c.now()
	return true
}

// Confirm consumes a pending confirmation and reports whether the cancel
// should be issued.
func (c *Confirmations) Confirm(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.pendingLocked(id) {
		return false
	}
	delete(c.pending, id)
	return true
}

// Pending reports whether id awaits confirmation.
func (c *Confirmations) Pending(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked(id)
}

func (c *Confirmations) pendingLocked(id int) bool {
	at, ok := c.pending[id]
	if !ok {
		return false
	}
	if c.now().Sub(at) >= c.timeout {
		delete(c.pending, id)
		return false
	}
	return true
}
