package gallery

import "bokeh-viewer/internal/photo"

// Scope is a named view (a year or a folder) with its own photo order over
// the shared store.
type Scope struct {
	state   *State
	name    string
	ids     []int
	members map[int]struct{}
}

// Scope returns the view called name, creating it if needed.
func (s *State) Scope(name string) *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, ok := s.scopes[name]
	if !ok {
		sc = &Scope{state: s, name: name, members: make(map[int]struct{})}
		s.scopes[name] = sc
	}
	return sc
}

// DropScope removes a view and any records only it referenced.
func (s *State) DropScope(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scopes[name]; !ok {
		return
	}
	delete(s.scopes, name)
	s.gcLocked()
	s.touchLocked()
}

// Name returns the scope name.
func (sc *Scope) Name() string {
	return sc.name
}

// Replace sets the scope's photos. Records are upserted into the shared
// store without lowering any rotation version.
func (sc *Scope) Replace(photos []photo.Record) {
	s := sc.state
	s.mu.Lock()
	defer s.mu.Unlock()

	sc.ids = sc.ids[:0]
	sc.members = make(map[int]struct{}, len(photos))
	for _, p := range photos {
		if _, dup := sc.members[p.ID]; dup {
			continue
		}
		s.upsertLocked(p)
		sc.ids = append(sc.ids, p.ID)
		sc.members[p.ID] = struct{}{}
	}
	s.gcLocked()
	s.touchLocked()
}

// IDs returns the scope order.
func (sc *Scope) IDs() []int {
	s := sc.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), sc.ids...)
}

// Photos returns the scope's records in order.
func (sc *Scope) Photos() []photo.Record {
	s := sc.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(sc.ids)
}

// Len returns the number of photos in the scope.
func (sc *Scope) Len() int {
	s := sc.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(sc.ids)
}

// MonthBuckets groups the scope's photos of year by month using the state's
// sort.
func (sc *Scope) MonthBuckets(year int) []MonthBucket {
	s := sc.state
	s.mu.RLock()
	defer s.mu.RUnlock()
	return monthBuckets(s.resolveLocked(sc.ids), year, s.sort)
}
