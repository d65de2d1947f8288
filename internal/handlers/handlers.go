package handlers

import (
	"context"
	"time"

	"bokeh-viewer/internal/gallery"
	"bokeh-viewer/internal/imagecache"
	"bokeh-viewer/internal/jobs"
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/thumbnail"
)

// PageSource reports gallery paging progress.
type PageSource interface {
	Started() bool
	HasMore() bool
	Total() int
}

// JobStatus exposes the most recent poll.
type JobStatus interface {
	Latest() jobs.Status
}

// CacheStats reports image cache usage.
type CacheStats interface {
	Stats(ctx context.Context) (imagecache.Stats, error)
}

// Rotations reports the rotation currently displayed for a photo.
type Rotations interface {
	DisplayRotation(id int) int
	InFlight(id int) bool
}

// DirtySet lists photos waiting for thumbnail regeneration.
type DirtySet interface {
	Dirty() []int
}

// URLFunc resolves the image URL the viewer would load for a photo.
type URLFunc func(p photo.Record, size thumbnail.Size) string

// Deps are the components the status server reads from. Everything except
// Gallery is optional.
type Deps struct {
	Gallery   *gallery.State
	Loader    PageSource
	Jobs      JobStatus
	Cache     CacheStats
	Rotations Rotations
	Dirty     DirtySet
	URL       URLFunc
	StartedAt time.Time
}

// Handlers serves read-only views of the running viewer.
type Handlers struct {
	gallery   *gallery.State
	loader    PageSource
	jobs      JobStatus
	cache     CacheStats
	rotations Rotations
	dirty     DirtySet
	url       URLFunc
	startedAt time.Time
}

// New creates the handlers.
func New(deps Deps) *Handlers {
	startedAt := deps.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	return &Handlers{
		gallery:   deps.Gallery,
		loader:    deps.Loader,
		jobs:      deps.Jobs,
		cache:     deps.Cache,
		rotations: deps.Rotations,
		dirty:     deps.Dirty,
		url:       deps.URL,
		startedAt: startedAt,
	}
}

func (h *Handlers) ready() bool {
	return h.loader == nil || h.loader.Started()
}

func (h *Handlers) rotationFor(p photo.Record) int {
	if h.rotations != nil {
		return h.rotations.DisplayRotation(p.ID)
	}
	return p.Rotation()
}

func (h *Handlers) dirtyCount() int {
	if h.dirty == nil {
		return 0
	}
	return len(h.dirty.Dirty())
}
