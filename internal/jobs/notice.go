package jobs

import (
	"sync"
	"time"
)

// Durations used for job action messages.
const (
	NoticeShort = 3 * time.Second
	NoticeLong  = 5 * time.Second
)

// Notice is a status message that clears itself.
type Notice struct {
	mu      sync.Mutex
	now     func() time.Time
	text    string
	expires time.Time
}

// NewNotice creates an empty notice. A nil clock uses time.Now.
func NewNotice(now func() time.Time) *Notice {
	if now == nil {
		now = time.Now
	}
	return &Notice{now: now}
}

// Set shows text for d, replacing any current message.
func (n *Notice) Set(text string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = text
	n.expires = n.now().Add(d)
}

// Text returns the current message, or "" once it has expired.
func (n *Notice) Text() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.text == "" || !n.now().Before(n.expires) {
		n.text = ""
		return ""
	}
	return n.text
}

// Clear removes the message.
func (n *Notice) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.text = ""
}
