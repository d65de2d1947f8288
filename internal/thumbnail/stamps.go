package thumbnail

import (
	"sync"
	"time"
)

// DefaultGrace is how long a regeneration stamp is honored.
const DefaultGrace = 5 * time.Second

// Stamps records when regeneration was requested for each photo. Entries
// expire after the grace period; until then Lookup returns the same stamp
// for every call, keeping derived URLs stable.
type Stamps struct {
	mu      sync.Mutex
	grace   time.Duration
	entries map[int]time.Time
}

// NewStamps creates a stamp store. A non-positive grace uses DefaultGrace.
func NewStamps(grace time.Duration) *Stamps {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Stamps{
		grace:   grace,
		entries: make(map[int]time.Time),
	}
}

// Grace returns the configured grace period.
func (s *Stamps) Grace() time.Duration {
	return s.grace
}

// Mark captures at as the regeneration stamp for id, replacing any earlier
// stamp. It is called once per regeneration event.
func (s *Stamps) Mark(id int, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = at
}

// Lookup returns the stamp for id if it is still within the grace period at
// now. Expired entries are dropped.
func (s *Stamps) Lookup(id int, now time.Time) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.entries[id]
	if !ok {
		return time.Time{}, false
	}
	if now.Sub(at) >= s.grace {
		delete(s.entries, id)
		return time.Time{}, false
	}
	return at, true
}

// Clear removes the stamp for id.
func (s *Stamps) Clear(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Prune drops every expired entry and returns how many remain.
func (s *Stamps) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, at := range s.entries {
		if now.Sub(at) >= s.grace {
			delete(s.entries, id)
		}
	}
	return len(s.entries)
}

// Len returns the number of stored stamps, expired or not.
func (s *Stamps) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
