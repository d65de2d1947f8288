package regen

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
)

// Regenerator asks the backend to rebuild one photo's thumbnails.
type Regenerator interface {
	RegenerateThumbnail(ctx context.Context, id int) error
}

// Stamper records when regeneration was dispatched for a photo.
type Stamper interface {
	Mark(id int, at time.Time)
}

// Options configures a Scheduler.
type Options struct {
	// RateLimit caps dispatches per second. Zero means unlimited.
	RateLimit float64
	// Burst is the limiter burst size; defaults to 1.
	Burst int
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
	// OnResult, if set, is called from the dispatch goroutine after each
	// request completes.
	OnResult func(id int, err error)
}

// Scheduler tracks dirty photos and dispatches regeneration requests.
type Scheduler struct {
	client  Regenerator
	stamps  Stamper
	limiter *rate.Limiter
	now     func() time.Time
	onRes   func(int, error)

	mu    sync.Mutex
	dirty map[int]struct{}

	wg sync.WaitGroup
}

// NewScheduler creates a scheduler. stamps may be nil.
func NewScheduler(client Regenerator, stamps Stamper, opts Options) *Scheduler {
	limit := rate.Inf
	burst := opts.Burst
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		client:  client,
		stamps:  stamps,
		limiter: rate.NewLimiter(limit, burst),
		now:     now,
		onRes:   opts.OnResult,
		dirty:   make(map[int]struct{}),
	}
}

// MarkDirty flags id for regeneration on the next leave.
func (s *Scheduler) MarkDirty(id int) {
	s.mu.Lock()
	s.dirty[id] = struct{}{}
	n := len(s.dirty)
	s.mu.Unlock()
	metrics.RegenerationsDirty.Set(float64(n))
}

// IsDirty reports whether id awaits regeneration.
func (s *Scheduler) IsDirty(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirty[id]
	return ok
}

// Dirty returns the dirty ids in ascending order.
func (s *Scheduler) Dirty() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// OnLeave dispatches regeneration for id if it is dirty and reports whether
// a request was sent. Calling it again for the same id is a no-op until the
// photo is marked dirty again.
func (s *Scheduler) OnLeave(ctx context.Context, id int) bool {
	s.mu.Lock()
	if _, ok := s.dirty[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.dirty, id)
	n := len(s.dirty)
	s.mu.Unlock()

	metrics.RegenerationsDirty.Set(float64(n))
	s.dispatch(ctx, id, "leave")
	return true
}

// Flush dispatches regeneration for every remaining dirty photo, clears the
// set and returns how many requests were sent.
func (s *Scheduler) Flush(ctx context.Context) int {
	s.mu.Lock()
	ids := make([]int, 0, len(s.dirty))
	for id := range s.dirty {
		ids = append(ids, id)
	}
	s.dirty = make(map[int]struct{})
	s.mu.Unlock()

	metrics.RegenerationsDirty.Set(0)
	sort.Ints(ids)
	for _, id := range ids {
		s.dispatch(ctx, id, "flush")
	}
	return len(ids)
}

// Wait blocks until every dispatched request has completed.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// dispatch captures the regeneration stamp and sends the request in the
// background. The request outlives ctx cancellation so leaving the viewer
// does not abort it.
func (s *Scheduler) dispatch(ctx context.Context, id int, trigger string) {
	if s.stamps != nil {
		s.stamps.Mark(id, s.now())
	}

	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.limiter.Wait(bg)
		if err == nil {
			err = s.client.RegenerateThumbnail(bg, id)
		}

		if err != nil {
			metrics.RegenerationsTotal.WithLabelValues(trigger, "error").Inc()
			logging.Warn("Thumbnail regeneration for photo %d failed: %v", id, err)
		} else {
			metrics.RegenerationsTotal.WithLabelValues(trigger, "success").Inc()
			logging.Debug("Thumbnail regeneration for photo %d requested (%s)", id, trigger)
		}

		if s.onRes != nil {
			s.onRes(id, err)
		}
	}()
}
