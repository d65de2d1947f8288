package gallery

import (
	"context"
	"fmt"
	"sync"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
)

// PhotoLister fetches pages of the library.
type PhotoLister interface {
	ListPhotos(ctx context.Context, opts api.ListOptions) (*api.PhotoPage, error)
}

// DefaultPerPage is the page size used when none is configured.
const DefaultPerPage = 100

// Loader pages through the library into a State.
type Loader struct {
	client  PhotoLister
	state   *State
	perPage int

	mu         sync.Mutex
	epoch      uint64
	nextPage   int
	totalPages int
	total      int
	started    bool
	loading    bool
}

// NewLoader creates a loader. A non-positive perPage uses DefaultPerPage.
func NewLoader(client PhotoLister, state *State, perPage int) *Loader {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	return &Loader{
		client:   client,
		state:    state,
		perPage:  perPage,
		nextPage: 1,
		epoch:    state.Epoch(),
	}
}

// syncLocked restarts paging when the state was reset.
func (l *Loader) syncLocked() {
	if e := l.state.Epoch(); e != l.epoch {
		l.epoch = e
		l.nextPage = 1
		l.totalPages = 0
		l.total = 0
		l.started = false
	}
}

// HasMore reports whether another page can be loaded.
func (l *Loader) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.syncLocked()
	return !l.started || l.nextPage <= l.totalPages
}

// Started reports whether a page has been loaded since the last reset.
func (l *Loader) Started() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.syncLocked()
	return l.started
}

// Total returns the library size reported by the last page.
func (l *Loader) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// LoadNext fetches the next page and appends it to the state, returning
// how many photos were added. Only one page is fetched at a time; a call
// made while another is loading returns immediately. A page that arrives
// after the state was reset is discarded.
func (l *Loader) LoadNext(ctx context.Context) (int, error) {
	l.mu.Lock()
	l.syncLocked()
	if l.loading || (l.started && l.nextPage > l.totalPages) {
		l.mu.Unlock()
		return 0, nil
	}
	l.loading = true
	epoch := l.epoch
	pageNum := l.nextPage
	l.mu.Unlock()

	srt := l.state.Sort()
	page, err := l.client.ListPhotos(ctx, api.ListOptions{
		Page:    pageNum,
		PerPage: l.perPage,
		Sort:    srt.Field,
		Order:   srt.Order,
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loading = false

	if err != nil {
		return 0, fmt.Errorf("load page %d: %w", pageNum, err)
	}
	if l.state.Epoch() != epoch {
		logging.Debug("Discarding page %d loaded before sort change", pageNum)
		l.syncLocked()
		return 0, nil
	}

	added := l.state.AppendPage(page.Data)
	l.started = true
	l.totalPages = page.Pagination.TotalPages
	l.total = page.Pagination.Total
	l.nextPage = pageNum + 1

	logging.Debug("Loaded page %d/%d: %d photos (%d new)", pageNum, l.totalPages, len(page.Data), added)
	return added, nil
}

// LoadAll loads pages until none remain.
func (l *Loader) LoadAll(ctx context.Context) (int, error) {
	total := 0
	for l.HasMore() {
		n, err := l.LoadNext(ctx)
		if err != nil {
			return total, err
		}
		total += n
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
	return total, nil
}
