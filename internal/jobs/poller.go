package jobs

import (
	"context"
	"sync"
	"time"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
)

// Default poll intervals.
const (
	DefaultFastInterval = 2 * time.Second
	DefaultSlowInterval = 30 * time.Second
)

// Source is the backend surface the poller reads.
type Source interface {
	Jobs(ctx context.Context, includeCompleted bool) ([]api.Job, error)
	SystemStats(ctx context.Context) (*api.SystemStats, error)
	PhotoCount(ctx context.Context) (*api.PhotoCount, error)
}

// Mode is the poller cadence.
type Mode int

const (
	// ModeIdle polls at the slow interval.
	ModeIdle Mode = iota
	// ModeActive polls at the fast interval.
	ModeActive
)

func (m Mode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "idle"
}

// Status is the result of one poll.
type Status struct {
	Mode     Mode
	Jobs     []api.Job
	Stats    *api.SystemStats
	Count    *api.PhotoCount
	PolledAt time.Time

	// CountChanged is set when the photo count differs from the previous
	// poll.
	CountChanged bool
	// LibraryChanging is set while jobs are active or the count changed.
	LibraryChanging bool

	// Err is the job list error, if any. Stats and count failures are
	// logged and leave the previous values in place.
	Err error
}

// Options configures a Poller.
type Options struct {
	FastInterval time.Duration
	SlowInterval time.Duration
	// OnStatus, if set, receives every status from the poll goroutine.
	OnStatus func(Status)
}

// Poller runs the two-speed poll loop.
type Poller struct {
	source Source
	fast   time.Duration
	slow   time.Duration
	notify func(Status)

	mu        sync.Mutex
	latest    Status
	lastCount int
	haveCount bool
	running   bool
	cancel    context.CancelFunc
	doneChan  chan struct{}
	kick      chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(source Source, opts Options) *Poller {
	if opts.FastInterval <= 0 {
		opts.FastInterval = DefaultFastInterval
	}
	if opts.SlowInterval <= 0 {
		opts.SlowInterval = DefaultSlowInterval
	}
	return &Poller{
		source: source,
		fast:   opts.FastInterval,
		slow:   opts.SlowInterval,
		notify: opts.OnStatus,
		kick:   make(chan struct{}, 1),
	}
}

// Start begins polling in the background. It polls immediately.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.doneChan = make(chan struct{})
	p.running = true

	go p.run(ctx, p.doneChan)
	logging.Debug("Job poller started (fast %v, slow %v)", p.fast, p.slow)
}

// Stop cancels any poll in progress, tears down the timer and waits for the
// loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.doneChan
	p.mu.Unlock()

	cancel()
	<-done
	logging.Debug("Job poller stopped")
}

// Trigger requests a poll now instead of waiting for the timer. It never
// blocks; triggers while one is pending are merged.
func (p *Poller) Trigger() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		status := p.Poll(ctx)
		if ctx.Err() != nil {
			return
		}

		timer := time.NewTimer(p.intervalFor(status.Mode))
		select {
		case <-timer.C:
		case <-p.kick:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (p *Poller) intervalFor(m Mode) time.Duration {
	if m == ModeActive {
		return p.fast
	}
	return p.slow
}

// Interval returns the delay the loop uses after the latest poll.
func (p *Poller) Interval() time.Duration {
	return p.intervalFor(p.Mode())
}

// Mode returns the cadence chosen by the latest poll.
func (p *Poller) Mode() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest.Mode
}

// Latest returns the most recent status.
func (p *Poller) Latest() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Poll performs one synchronous poll, updates the mode and notifies the
// listener.
func (p *Poller) Poll(ctx context.Context) Status {
	start := time.Now()

	jobs, jobsErr := p.source.Jobs(ctx, false)
	stats, statsErr := p.source.SystemStats(ctx)
	count, countErr := p.source.PhotoCount(ctx)

	metrics.PollDuration.Observe(time.Since(start).Seconds())
	if jobsErr != nil {
		metrics.PollsTotal.WithLabelValues("error").Inc()
		logging.Warn("Job poll failed: %v", jobsErr)
	} else {
		metrics.PollsTotal.WithLabelValues("success").Inc()
	}
	if statsErr != nil {
		logging.Debug("System stats poll failed: %v", statsErr)
	}
	if countErr != nil {
		logging.Debug("Photo count poll failed: %v", countErr)
	}

	p.mu.Lock()
	prev := p.latest
	status := Status{
		Mode:     prev.Mode,
		Jobs:     prev.Jobs,
		Stats:    prev.Stats,
		Count:    prev.Count,
		PolledAt: time.Now(),
		Err:      jobsErr,
	}

	if jobsErr == nil {
		status.Jobs = jobs
		status.Mode = ModeIdle
		if len(Active(jobs)) > 0 {
			status.Mode = ModeActive
		}
	}
	if statsErr == nil {
		status.Stats = stats
	}
	if countErr == nil {
		status.Count = count
		if p.haveCount && count.Count != p.lastCount {
			status.CountChanged = true
		}
		p.lastCount = count.Count
		p.haveCount = true
	}
	status.LibraryChanging = status.Mode == ModeActive || status.CountChanged

	if status.Mode != prev.Mode {
		logging.Debug("Job poller switching to %s mode", status.Mode)
	}
	p.latest = status
	p.mu.Unlock()

	if status.Mode == ModeActive {
		metrics.PollerActive.Set(1)
	} else {
		metrics.PollerActive.Set(0)
	}
	metrics.ActiveJobs.Set(float64(len(Active(status.Jobs))))
	if status.Count != nil {
		metrics.LibraryPhotos.Set(float64(status.Count.Count))
	}

	if p.notify != nil {
		p.notify(status)
	}
	return status
}
