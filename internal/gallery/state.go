package gallery

import (
	"sort"
	"sync"
	"time"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
	"bokeh-viewer/internal/photo"
)

// Sort is the ordering requested from the backend.
type Sort struct {
	Field string // api.SortDateTaken or api.SortCreatedAt
	Order string // api.OrderAsc or api.OrderDesc
}

// DefaultSort orders by date taken, newest first.
var DefaultSort = Sort{Field: api.SortDateTaken, Order: api.OrderDesc}

// Descending reports whether newer photos come first.
func (s Sort) Descending() bool {
	return s.Order != api.OrderAsc
}

// Key returns the timestamp p is ordered by.
func (s Sort) Key(p photo.Record) time.Time {
	if s.Field == api.SortCreatedAt {
		return p.CreatedAt.Time
	}
	return p.EffectiveDate()
}

// State is the shared photo store.
type State struct {
	mu         sync.RWMutex
	records    map[int]photo.Record
	grid       []int
	inGrid     map[int]struct{}
	scopes     map[string]*Scope
	sort       Sort
	generation uint64
	epoch      uint64
}

// New creates an empty state with the given sort.
func New(s Sort) *State {
	if s.Field == "" {
		s.Field = DefaultSort.Field
	}
	if s.Order == "" {
		s.Order = DefaultSort.Order
	}
	return &State{
		records: make(map[int]photo.Record),
		inGrid:  make(map[int]struct{}),
		scopes:  make(map[string]*Scope),
		sort:    s,
	}
}

// AppendPage adds photos to the end of the grid. Photos whose id is already
// in the grid are dropped, keeping the first-seen position. It returns how
// many were added.
func (s *State) AppendPage(photos []photo.Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, p := range photos {
		if _, ok := s.inGrid[p.ID]; ok {
			continue
		}
		s.upsertLocked(p)
		s.grid = append(s.grid, p.ID)
		s.inGrid[p.ID] = struct{}{}
		added++
	}
	if added > 0 {
		s.touchLocked()
	}
	return added
}

// InsertRecent adds photos created by a running scan. With a descending
// sort they go to the front of the grid (newest first), otherwise to the
// back. Known ids are dropped.
func (s *State) InsertRecent(photos []photo.Record) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []photo.Record
	seen := make(map[int]struct{})
	for _, p := range photos {
		if _, ok := s.inGrid[p.ID]; ok {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		fresh = append(fresh, p)
	}
	if len(fresh) == 0 {
		return 0
	}

	key := s.sort.Key
	desc := s.sort.Descending()
	sort.SliceStable(fresh, func(i, j int) bool {
		if desc {
			return key(fresh[i]).After(key(fresh[j]))
		}
		return key(fresh[i]).Before(key(fresh[j]))
	})

	ids := make([]int, 0, len(fresh))
	for _, p := range fresh {
		s.upsertLocked(p)
		s.inGrid[p.ID] = struct{}{}
		ids = append(ids, p.ID)
	}
	if desc {
		s.grid = append(ids, s.grid...)
	} else {
		s.grid = append(s.grid, ids...)
	}

	s.touchLocked()
	metrics.GalleryNewPhotosTotal.Add(float64(len(ids)))
	return len(ids)
}

// MergeRotationUpdate replaces the rotation fields of id in place. It is a
// no-op when id is unknown or version is older than the stored one.
func (s *State) MergeRotationUpdate(id, version, finalRotation int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked(id, photo.RotationState{Version: version, FinalRotation: finalRotation})
}

// MergeBatch applies every update and returns how many were applied.
func (s *State) MergeBatch(updates map[int]photo.RotationState) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	for id, st := range updates {
		if s.mergeLocked(id, st) {
			applied++
		}
	}
	if applied > 0 {
		logging.Debug("Merged %d rotation updates into gallery", applied)
	}
	return applied
}

func (s *State) mergeLocked(id int, st photo.RotationState) bool {
	rec, ok := s.records[id]
	if !ok {
		metrics.GalleryMergesTotal.WithLabelValues("unknown").Inc()
		return false
	}
	updated, ok := rec.WithRotation(st)
	if !ok {
		metrics.GalleryMergesTotal.WithLabelValues("stale").Inc()
		return false
	}
	s.records[id] = updated
	s.touchLocked()
	metrics.GalleryMergesTotal.WithLabelValues("applied").Inc()
	return true
}

// upsertLocked stores p, keeping the stored rotation when it is newer.
func (s *State) upsertLocked(p photo.Record) {
	p.FinalRotation = photo.Normalize(p.FinalRotation)
	if existing, ok := s.records[p.ID]; ok && existing.RotationVersion > p.RotationVersion {
		p.RotationVersion = existing.RotationVersion
		p.FinalRotation = existing.FinalRotation
	}
	s.records[p.ID] = p
}

// Reset clears the grid and applies a new sort. Pages must be refetched in
// the new order. Records still referenced by a scope are kept.
func (s *State) Reset(newSort Sort) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newSort.Field == "" {
		newSort.Field = s.sort.Field
	}
	if newSort.Order == "" {
		newSort.Order = s.sort.Order
	}
	s.sort = newSort
	s.grid = nil
	s.inGrid = make(map[int]struct{})
	s.gcLocked()
	s.epoch++
	s.touchLocked()
}

// gcLocked drops records no view refers to.
func (s *State) gcLocked() {
	for id := range s.records {
		if _, ok := s.inGrid[id]; ok {
			continue
		}
		referenced := false
		for _, sc := range s.scopes {
			if _, ok := sc.members[id]; ok {
				referenced = true
				break
			}
		}
		if !referenced {
			delete(s.records, id)
		}
	}
}

func (s *State) touchLocked() {
	s.generation++
	metrics.GalleryPhotosLoaded.Set(float64(len(s.grid)))
}

// Sort returns the current sort.
func (s *State) Sort() Sort {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sort
}

// Generation increases on every mutation.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Epoch increases on every Reset.
func (s *State) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Photo returns the stored record for id.
func (s *State) Photo(id int) (photo.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.records[id]
	return p, ok
}

// Len returns the number of photos in the grid.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.grid)
}

// IDs returns the grid order.
func (s *State) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.grid...)
}

// Photos returns the grid in order.
func (s *State) Photos() []photo.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(s.grid)
}

// Index returns the grid position of id, or -1.
func (s *State) Index(id int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, gid := range s.grid {
		if gid == id {
			return i
		}
	}
	return -1
}

func (s *State) resolveLocked(ids []int) []photo.Record {
	out := make([]photo.Record, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.records[id]; ok {
			out = append(out, p)
		}
	}
	return out
}
