package gallery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
)

// RecentSource reports library growth.
type RecentSource interface {
	PhotoCount(ctx context.Context) (*api.PhotoCount, error)
	RecentPhotos(ctx context.Context, since time.Time, limit int) (*api.RecentPhotos, error)
}

// Watcher pulls photos added by a running scan into the grid.
type Watcher struct {
	client RecentSource
	state  *State
	limit  int

	mu     sync.Mutex
	primed bool
	count  int
	latest time.Time
}

// NewWatcher creates a watcher fetching at most limit photos per check.
func NewWatcher(client RecentSource, state *State, limit int) *Watcher {
	if limit <= 0 {
		limit = DefaultPerPage
	}
	return &Watcher{client: client, state: state, limit: limit}
}

// Check fetches the current count and applies it.
func (w *Watcher) Check(ctx context.Context) (int, error) {
	count, err := w.client.PhotoCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("photo count: %w", err)
	}
	return w.Apply(ctx, count)
}

// Apply compares count with the last observation and, when the library
// grew, inserts the new photos. The first observation only records the
// baseline.
func (w *Watcher) Apply(ctx context.Context, count *api.PhotoCount) (int, error) {
	if count == nil {
		return 0, nil
	}
	var latest time.Time
	if count.LatestCreatedAt != nil {
		latest = count.LatestCreatedAt.Time
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.primed {
		w.primed = true
		w.count = count.Count
		w.latest = latest
		return 0, nil
	}
	if count.Count == w.count && !latest.After(w.latest) {
		return 0, nil
	}

	recent, err := w.client.RecentPhotos(ctx, w.latest, w.limit)
	if err != nil {
		return 0, fmt.Errorf("recent photos: %w", err)
	}

	inserted := w.state.InsertRecent(recent.Data)
	w.count = count.Count
	if latest.After(w.latest) {
		w.latest = latest
	}
	if inserted > 0 {
		logging.Info("Found %d new photos (library now %d)", inserted, count.Count)
	}
	return inserted, nil
}
