package viewer

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/regen"
	"bokeh-viewer/internal/rotation"
	"bokeh-viewer/internal/thumbnail"
)

// Zoom limits.
const (
	ZoomStep = 1.2
	MinZoom  = 0.5
	MaxZoom  = 5.0
)

// Gallery is the part of the gallery state a session reads and updates.
type Gallery interface {
	Photo(id int) (photo.Record, bool)
	MergeBatch(updates map[int]photo.RotationState) int
}

// Deps are the collaborators of a session.
type Deps struct {
	Gallery   Gallery
	Rotations *rotation.Controller
	Scheduler *regen.Scheduler
	Stamps    *thumbnail.Stamps
	Resolver  *thumbnail.Resolver
	Now       func() time.Time
	// OnChange, if set, is called whenever the view should be redrawn. It
	// may be called from background goroutines.
	OnChange func()
}

// Session is one open viewer.
type Session struct {
	deps Deps

	mu       sync.Mutex
	ids      []int
	index    int
	open     bool
	zoom     float64
	showInfo bool
	lastErr  error

	rotating sync.WaitGroup
}

// NewSession creates a closed session.
func NewSession(deps Deps) *Session {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.OnChange == nil {
		deps.OnChange = func() {}
	}
	return &Session{deps: deps, zoom: 1}
}

// Open shows ids starting at index. An out of range index is clamped.
func (s *Session) Open(ids []int, index int) error {
	if len(ids) == 0 {
		return errors.New("viewer: no photos to show")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append([]int(nil), ids...)
	s.index = clamp(index, 0, len(ids)-1)
	s.open = true
	s.zoom = 1
	s.showInfo = false
	s.lastErr = nil
	logging.Debug("Viewer opened at photo %d (%d of %d)", s.ids[s.index], s.index+1, len(s.ids))
	return nil
}

// IsOpen reports whether the session is showing photos.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Current returns the photo on screen.
func (s *Session) Current() (photo.Record, bool) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return photo.Record{}, false
	}
	id := s.ids[s.index]
	s.mu.Unlock()
	return s.deps.Gallery.Photo(id)
}

// CurrentID returns the id on screen, or 0 when closed.
func (s *Session) CurrentID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0
	}
	return s.ids[s.index]
}

// Position returns the 1-based index and the number of photos.
func (s *Session) Position() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return 0, 0
	}
	return s.index + 1, len(s.ids)
}

// Next moves to the following photo. It reports whether the view changed.
func (s *Session) Next(ctx context.Context) bool {
	return s.move(ctx, func(i int) int { return i + 1 })
}

// Prev moves to the previous photo. It reports whether the view changed.
func (s *Session) Prev(ctx context.Context) bool {
	return s.move(ctx, func(i int) int { return i - 1 })
}

// GoTo jumps to index i. It reports whether the view changed.
func (s *Session) GoTo(ctx context.Context, i int) bool {
	return s.move(ctx, func(int) int { return i })
}

func (s *Session) move(ctx context.Context, next func(int) int) bool {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return false
	}
	to := next(s.index)
	if to < 0 || to >= len(s.ids) || to == s.index {
		s.mu.Unlock()
		return false
	}
	left := s.ids[s.index]
	s.index = to
	s.zoom = 1
	s.mu.Unlock()

	s.deps.Scheduler.OnLeave(ctx, left)
	s.deps.OnChange()
	return true
}

// Close leaves the current photo, dispatches every outstanding
// regeneration, merges the session's confirmed rotations into the gallery
// and drops the overrides. Rotation requests still in flight are not
// awaited; when they land they merge into the gallery and regenerate the
// thumbnail right away.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	current := s.ids[s.index]
	s.open = false
	s.mu.Unlock()

	s.deps.Scheduler.OnLeave(ctx, current)
	flushed := s.deps.Scheduler.Flush(ctx)

	updates := s.deps.Rotations.ConfirmedUpdates()
	merged := s.deps.Gallery.MergeBatch(updates)
	s.deps.Rotations.Dispose()

	logging.Debug("Viewer closed: %d confirmed rotations, %d merged, %d extra regenerations", len(updates), merged, flushed)
	s.deps.OnChange()
}

// Wait blocks until background rotations started by the session finish.
func (s *Session) Wait() {
	s.rotating.Wait()
}

// HandleKey applies one key press.
func (s *Session) HandleKey(ctx context.Context, k Key) Action {
	if !s.IsOpen() {
		return ActionNone
	}

	a := ActionFor(k)
	switch a {
	case ActionClose:
		s.Close(ctx)
	case ActionPrev:
		if !s.Prev(ctx) {
			return ActionNone
		}
	case ActionNext:
		if !s.Next(ctx) {
			return ActionNone
		}
	case ActionToggleInfo:
		s.mu.Lock()
		s.showInfo = !s.showInfo
		s.mu.Unlock()
		s.deps.OnChange()
	case ActionZoomIn:
		s.setZoom(func(z float64) float64 { return math.Min(z*ZoomStep, MaxZoom) })
	case ActionZoomOut:
		s.setZoom(func(z float64) float64 { return math.Max(z/ZoomStep, MinZoom) })
	case ActionRotateRight:
		s.rotate(ctx, photo.Right)
	case ActionRotateLeft:
		s.rotate(ctx, photo.Left)
	}
	return a
}

func (s *Session) setZoom(f func(float64) float64) {
	s.mu.Lock()
	s.zoom = f(s.zoom)
	s.mu.Unlock()
	s.deps.OnChange()
}

// rotate sends the request in the background so the session keeps
// accepting keys. The optimistic value is visible before it returns.
func (s *Session) rotate(ctx context.Context, dir photo.Direction) {
	id := s.CurrentID()
	if id == 0 {
		return
	}

	done, err := s.deps.Rotations.RotateAsync(ctx, id, dir)
	if err != nil {
		return
	}
	s.deps.OnChange()

	s.rotating.Add(1)
	go func() {
		defer s.rotating.Done()
		if err := <-done; err != nil {
			s.mu.Lock()
			s.lastErr = err
			s.mu.Unlock()
		}
		s.deps.OnChange()
	}()
}

// Zoom returns the zoom factor.
func (s *Session) Zoom() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// ShowInfo reports whether the info panel is visible.
func (s *Session) ShowInfo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showInfo
}

// Err returns the last rotation failure and clears it.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.lastErr
	s.lastErr = nil
	return err
}

// Rotation returns the rotation shown for the current photo.
func (s *Session) Rotation() int {
	id := s.CurrentID()
	if id == 0 {
		return 0
	}
	return s.deps.Rotations.DisplayRotation(id)
}

// ImageURL returns the URL of the current photo at size, carrying the
// session's confirmed version and any live regeneration stamp.
func (s *Session) ImageURL(size thumbnail.Size) string {
	p, ok := s.Current()
	if !ok {
		return ""
	}
	return ResolveURL(s.deps.Resolver, s.deps.Rotations, s.deps.Stamps, p, size, s.deps.Now())
}

// DisplayDimensions returns the current photo's size after rotation.
func (s *Session) DisplayDimensions() (int, int) {
	p, ok := s.Current()
	if !ok {
		return 0, 0
	}
	return p.DisplayDimensions(s.deps.Rotations.DisplayRotation(p.ID))
}

// Info returns the info panel of the current photo.
func (s *Session) Info() []InfoField {
	p, ok := s.Current()
	if !ok {
		return nil
	}
	return Info(p, s.deps.Rotations.DisplayRotation(p.ID))
}

// ResolveURL combines the session override for p with its regeneration
// stamp and resolves the thumbnail URL. rotations may be nil outside a
// viewer session.
func ResolveURL(r *thumbnail.Resolver, rotations *rotation.Controller, stamps *thumbnail.Stamps, p photo.Record, size thumbnail.Size, now time.Time) string {
	var o thumbnail.Override
	if rotations != nil {
		if ov, ok := rotations.Override(p.ID); ok {
			o = ov.Thumbnail()
		}
	}
	if stamps != nil {
		if at, ok := stamps.Lookup(p.ID, now); ok {
			o.RegeneratedAt = at
		}
	}
	if o.IsZero() {
		return r.Resolve(p, size, nil)
	}
	return r.Resolve(p, size, &o)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
