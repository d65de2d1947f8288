package rotation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
	"bokeh-viewer/internal/photo"
)

// ErrInFlight is returned when a rotation request for the photo is still
// outstanding. The press is dropped, not queued.
var ErrInFlight = errors.New("rotation already in flight")

// State is the per-photo editing state.
type State int

const (
	// Clean means nothing is pending for the photo.
	Clean State = iota
	// Rotating means a rotation request is outstanding.
	Rotating
	// Dirty means the rotation is confirmed but the thumbnail has not been
	// regenerated yet.
	Dirty
)

func (s State) String() string {
	switch s {
	case Clean:
		return "clean"
	case Rotating:
		return "rotating"
	case Dirty:
		return "dirty"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Persister persists rotation edits.
type Persister interface {
	UpdateRotation(ctx context.Context, id, rotation int) (*api.RotationResult, error)
}

// Gallery is the shared photo store the controller reads from and merges
// confirmed versions into.
type Gallery interface {
	Photo(id int) (photo.Record, bool)
	MergeRotationUpdate(id, version, finalRotation int) bool
}

// DirtyTracker receives photos that need thumbnail regeneration.
type DirtyTracker interface {
	MarkDirty(id int)
	IsDirty(id int) bool
	OnLeave(ctx context.Context, id int) bool
}

// EventKind identifies a controller event.
type EventKind int

const (
	// Optimistic is published when a new rotation is applied locally.
	Optimistic EventKind = iota
	// Confirmed is published when the server accepted a rotation.
	Confirmed
	// Failed is published when a rotation request failed.
	Failed
)

// Event describes a rotation state change.
type Event struct {
	Kind     EventKind
	ID       int
	Rotation int
	Version  int
	Err      error
}

// Options configures a Controller.
type Options struct {
	// Rollback reverts the optimistic rotation to the last confirmed value
	// when a request fails. When false the optimistic value stays.
	Rollback bool

	// OnEvent, if set, is called outside the controller lock for every
	// event.
	OnEvent func(Event)
}

// Controller owns rotation overrides for one viewer session.
type Controller struct {
	client  Persister
	gallery Gallery
	dirty   DirtyTracker
	opts    Options

	mu        sync.Mutex
	overrides map[int]*Override
	inFlight  map[int]bool
	session   int
}

// NewController creates a controller with an empty override store.
func NewController(client Persister, gallery Gallery, dirty DirtyTracker, opts Options) *Controller {
	return &Controller{
		client:    client,
		gallery:   gallery,
		dirty:     dirty,
		opts:      opts,
		overrides: make(map[int]*Override),
		inFlight:  make(map[int]bool),
	}
}

// Rotate turns photo id a quarter turn in dir. It blocks until the server
// answers and returns the rotation now displayed for the photo.
func (c *Controller) Rotate(ctx context.Context, id int, dir photo.Direction) (int, error) {
	requested, session, err := c.begin(id, dir)
	if err != nil {
		return requested, err
	}
	return c.finish(ctx, id, dir, requested, session)
}

// RotateAsync applies the optimistic rotation before returning and sends
// the request in the background. The channel receives the request outcome
// and is closed afterwards. ErrInFlight is returned synchronously.
func (c *Controller) RotateAsync(ctx context.Context, id int, dir photo.Direction) (<-chan error, error) {
	requested, session, err := c.begin(id, dir)
	if err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := c.finish(ctx, id, dir, requested, session)
		done <- err
	}()
	return done, nil
}

func (c *Controller) begin(id int, dir photo.Direction) (int, int, error) {
	c.mu.Lock()
	if c.inFlight[id] {
		current := c.displayLocked(id)
		c.mu.Unlock()
		metrics.RotationsTotal.WithLabelValues(string(dir), "in_flight").Inc()
		logging.Debug("Rotation of photo %d ignored: request in flight", id)
		return current, 0, ErrInFlight
	}

	requested := photo.Rotate(c.displayLocked(id), dir)
	ov := c.overrideLocked(id)
	ov.Pending = requested
	ov.HasPending = true
	c.inFlight[id] = true
	session := c.session
	c.mu.Unlock()

	metrics.RotationsInFlight.Inc()
	c.emit(Event{Kind: Optimistic, ID: id, Rotation: requested})
	return requested, session, nil
}

func (c *Controller) finish(ctx context.Context, id int, dir photo.Direction, requested, session int) (int, error) {
	res, err := c.client.UpdateRotation(ctx, id, requested)
	metrics.RotationsInFlight.Dec()

	if err != nil {
		return c.fail(id, dir, session, err)
	}
	return c.confirm(ctx, id, dir, session, res.State(requested))
}

func (c *Controller) confirm(ctx context.Context, id int, dir photo.Direction, session int, state photo.RotationState) (int, error) {
	c.mu.Lock()
	delete(c.inFlight, id)
	current := session == c.session
	if current {
		ov := c.overrideLocked(id)
		if !ov.HasConfirmed || state.Version >= ov.Confirmed.Version {
			ov.Confirmed = state
			ov.HasConfirmed = true
		}
		ov.HasPending = false
	}
	display := c.displayLocked(id)
	c.mu.Unlock()

	c.gallery.MergeRotationUpdate(id, state.Version, state.FinalRotation)
	c.dirty.MarkDirty(id)
	if !current {
		// The session that made this edit already closed and flushed.
		c.dirty.OnLeave(ctx, id)
	}

	metrics.RotationsTotal.WithLabelValues(string(dir), "success").Inc()
	logging.Debug("Rotation of photo %d confirmed: %d degrees, version %d", id, state.FinalRotation, state.Version)
	c.emit(Event{Kind: Confirmed, ID: id, Rotation: state.FinalRotation, Version: state.Version})

	return display, nil
}

func (c *Controller) fail(id int, dir photo.Direction, session int, err error) (int, error) {
	c.mu.Lock()
	delete(c.inFlight, id)
	if session == c.session && c.opts.Rollback {
		if ov, ok := c.overrides[id]; ok {
			ov.HasPending = false
			metrics.RotationRollbacksTotal.Inc()
		}
	}
	display := c.displayLocked(id)
	c.mu.Unlock()

	metrics.RotationsTotal.WithLabelValues(string(dir), "error").Inc()
	logging.Warn("Failed to rotate photo %d: %v", id, err)
	c.emit(Event{Kind: Failed, ID: id, Rotation: display, Err: err})

	return display, fmt.Errorf("rotate photo %d: %w", id, err)
}

// DisplayRotation returns the rotation every view should render for id:
// the pending value while unconfirmed, then the confirmed value, then the
// gallery record's persisted rotation.
func (c *Controller) DisplayRotation(id int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayLocked(id)
}

func (c *Controller) displayLocked(id int) int {
	if ov, ok := c.overrides[id]; ok {
		if r, ok := ov.Display(); ok {
			return r
		}
	}
	if p, ok := c.gallery.Photo(id); ok {
		return p.Rotation()
	}
	return 0
}

func (c *Controller) overrideLocked(id int) *Override {
	ov, ok := c.overrides[id]
	if !ok {
		ov = &Override{}
		c.overrides[id] = ov
	}
	return ov
}

// State returns the editing state of id.
func (c *Controller) State(id int) State {
	c.mu.Lock()
	inFlight := c.inFlight[id]
	c.mu.Unlock()

	if inFlight {
		return Rotating
	}
	if c.dirty.IsDirty(id) {
		return Dirty
	}
	return Clean
}

// InFlight reports whether a request for id is outstanding.
func (c *Controller) InFlight(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[id]
}

// Override returns a copy of the session override for id.
func (c *Controller) Override(id int) (Override, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ov, ok := c.overrides[id]
	if !ok {
		return Override{}, false
	}
	return *ov, true
}

// ConfirmedUpdates returns every server-confirmed state of the session,
// for merging into the gallery in one batch.
func (c *Controller) ConfirmedUpdates() map[int]photo.RotationState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int]photo.RotationState)
	for id, ov := range c.overrides {
		if ov.HasConfirmed {
			out[id] = ov.Confirmed
		}
	}
	return out
}

// Dispose drops every override. Responses that arrive afterwards are still
// merged into the gallery, but not recorded in the session, and their
// regeneration is dispatched at once.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides = make(map[int]*Override)
	c.session++
}

func (c *Controller) emit(e Event) {
	if c.opts.OnEvent != nil {
		c.opts.OnEvent(e)
	}
}
