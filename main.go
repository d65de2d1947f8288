package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/gallery"
	"bokeh-viewer/internal/handlers"
	"bokeh-viewer/internal/imagecache"
	"bokeh-viewer/internal/jobs"
	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/media"
	"bokeh-viewer/internal/memory"
	"bokeh-viewer/internal/metrics"
	"bokeh-viewer/internal/middleware"
	"bokeh-viewer/internal/photo"
	"bokeh-viewer/internal/regen"
	"bokeh-viewer/internal/rotation"
	"bokeh-viewer/internal/startup"
	"bokeh-viewer/internal/terminal"
	"bokeh-viewer/internal/thumbnail"
	"bokeh-viewer/internal/ui"
	"bokeh-viewer/internal/viewer"
	"bokeh-viewer/internal/workers"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open image cache
	cacheStart := time.Now()
	cache, err := imagecache.Open(ctx, config.CacheDBPath, imagecache.Options{MaxBytes: config.CacheMaxBytes})
	if err != nil {
		startup.LogFatal("Failed to open image cache: %v", err)
	}
	startup.LogCacheInit(config.CacheDBPath, time.Since(cacheStart))

	client := api.New(config.APIURL,
		api.WithTimeout(config.RequestTimeout),
		api.WithRateLimit(config.APIRateLimit, 4),
		api.WithUserAgent("bokeh-viewer/"+startup.Version),
	)
	checkBackend(ctx, client, config.APIURL)

	// Memory governor, measured against GOMEMLIMIT
	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	// Gallery and rotation pipeline
	state := gallery.New(gallery.Sort{Field: config.Sort, Order: config.Order})
	pages := gallery.NewLoader(client, state, config.PerPage)
	watcher := gallery.NewWatcher(client, state, config.PerPage)

	stamps := thumbnail.NewStamps(config.RegenGrace)
	resolver := thumbnail.NewResolver(config.APIURL)
	scheduler := regen.NewScheduler(client, stamps, regen.Options{RateLimit: config.RegenRateLimit})
	rotations := rotation.NewController(client, state, scheduler, rotation.Options{Rollback: config.RotationRollback})

	images := media.NewLoader(client, cache, media.RetryConfig{
		MaxAttempts:    config.ImageRetries,
		InitialBackoff: config.ImageRetryBackoff,
		MaxBackoff:     16 * config.ImageRetryBackoff,
	})
	images.SetThrottle(memMonitor)

	redraw := make(chan struct{}, 1)
	requestRedraw := func() {
		select {
		case redraw <- struct{}{}:
		default:
		}
	}

	session := viewer.NewSession(viewer.Deps{
		Gallery:   state,
		Rotations: rotations,
		Scheduler: scheduler,
		Stamps:    stamps,
		Resolver:  resolver,
		OnChange:  requestRedraw,
	})

	// Job polling
	notice := jobs.NewNotice(nil)
	poller := jobs.NewPoller(client, jobs.Options{
		FastInterval: config.PollFastInterval,
		SlowInterval: config.PollSlowInterval,
		OnStatus: func(st jobs.Status) {
			added, err := watcher.Apply(ctx, st.Count)
			if err != nil {
				logging.Warn("Failed to fetch new photos: %v", err)
			}
			if added > 0 {
				notice.Set(fmt.Sprintf("%d new photos", added), jobs.NoticeLong)
			}
			requestRedraw()
		},
	})
	actions := jobs.NewActions(client, notice, jobs.NewConfirmations(0, nil), poller.Trigger)

	app := ui.New(ui.Deps{
		Client:    client,
		Gallery:   state,
		Pages:     pages,
		Session:   session,
		Rotations: rotations,
		Stamps:    stamps,
		Resolver:  resolver,
		Images:    images,
		Prefetch:  images,
		Jobs:      poller,
		Actions:   actions,
		Workers:   prefetchWorkers(config.PrefetchWorkers),
		OnChange:  requestRedraw,
	})

	// Metrics
	metrics.InitializeMetrics()
	metrics.AppInfo.WithLabelValues(startup.Version, startup.Commit, startup.GoVersion).Set(1)
	collector := metrics.NewCollector(&clientStatsAdapter{gallery: state, dirty: scheduler, cache: cache}, 30*time.Second)
	collector.Start()

	// Status server
	var srv *http.Server
	if config.StatusEnabled {
		h := handlers.New(handlers.Deps{
			Gallery:   state,
			Loader:    pages,
			Jobs:      poller,
			Cache:     cache,
			Rotations: rotations,
			Dirty:     scheduler,
			URL: func(p photo.Record, size thumbnail.Size) string {
				return viewer.ResolveURL(resolver, rotations, stamps, p, size, time.Now())
			},
			StartedAt: startTime,
		})
		router := h.Router()
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
		startup.LogHTTPRoutes(router, config.LogHealthChecks)

		loggingConfig := middleware.DefaultLoggingConfig()
		loggingConfig.LogHealthChecks = config.LogHealthChecks

		srv = &http.Server{
			Addr:        "127.0.0.1:" + config.StatusPort,
			Handler:     middleware.Logger(loggingConfig)(router),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Status server error: %v", err)
			}
		}()
		startup.LogServerStarted(startup.ServerConfig{Port: config.StatusPort, StartupDuration: time.Since(startTime)})
	}

	logFile, err := os.OpenFile(config.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		startup.LogFatal("Failed to open log file: %v", err)
	}
	logging.Info("Logging to %s", config.LogFilePath)

	// Terminal
	screen, err := terminal.Open(os.Stdin, os.Stdout)
	if err != nil {
		if errors.Is(err, terminal.ErrNotTerminal) {
			startup.LogFatal("bokeh-viewer needs an interactive terminal; use bokehctl for scripting")
		}
		startup.LogFatal("Failed to open terminal: %v", err)
	}
	logging.SetOutput(logFile)

	poller.Start(ctx)
	app.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	reason := runLoop(ctx, screen, app, stamps, redraw, sigChan)
	cancel()

	s := &shutdown{
		session:   session,
		app:       app,
		scheduler: scheduler,
		poller:    poller,
		collector: collector,
		monitor:   memMonitor,
		server:    srv,
		cache:     cache,
		screen:    screen,
	}
	s.run(reason)

	logging.SetOutput(os.Stderr)
	_ = logFile.Close()
}

// runLoop draws frames and feeds key presses to the app until the user quits
// or a signal arrives. It returns the shutdown reason.
func runLoop(ctx context.Context, screen *terminal.Screen, app *ui.App, stamps *thumbnail.Stamps, redraw <-chan struct{}, sigChan <-chan os.Signal) string {
	keys := screen.Keys(ctx)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	draw := func() {
		w, h := screen.Size()
		if err := screen.Draw(app.Render(ctx, w, h)); err != nil {
			logging.Warn("Failed to draw frame: %v", err)
		}
	}
	draw()

	for {
		select {
		case sig := <-sigChan:
			return sig.String()
		case k, ok := <-keys:
			if !ok {
				return "input closed"
			}
			if !app.HandleKey(ctx, k) {
				return "user quit"
			}
			draw()
		case <-redraw:
			draw()
		case now := <-ticker.C:
			stamps.Prune(now)
			draw()
		}
	}
}

// shutdown holds everything stopped on exit, in order.
type shutdown struct {
	session   *viewer.Session
	app       *ui.App
	scheduler *regen.Scheduler
	poller    *jobs.Poller
	collector *metrics.Collector
	monitor   *memory.Monitor
	server    *http.Server
	cache     *imagecache.Store
	screen    *terminal.Screen
}

func (s *shutdown) run(reason string) {
	startup.LogShutdownInitiated(reason)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Flushing pending thumbnail regenerations")
	s.session.Close(ctx)
	s.session.Wait()
	s.scheduler.Flush(ctx)
	s.scheduler.Wait()
	startup.LogShutdownStepComplete("Regenerations dispatched")

	startup.LogShutdownStep("Stopping background work")
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.app.Wait()
	}()
	s.poller.Stop()
	s.collector.Stop()
	s.monitor.Stop()
	wg.Wait()
	startup.LogShutdownStepComplete("Background work stopped")

	if s.server != nil {
		startup.LogShutdownStep("Shutting down status server")
		if err := s.server.Shutdown(ctx); err != nil {
			logging.Warn("Status server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Status server stopped")
		}
	}

	startup.LogShutdownStep("Closing image cache")
	if err := s.cache.Close(); err != nil {
		logging.Warn("Image cache close error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Image cache closed")
	}

	if err := s.screen.Close(); err != nil {
		logging.Warn("Failed to restore terminal: %v", err)
	}

	startup.LogShutdownComplete()
}

// checkBackend makes one request so a misconfigured API_URL shows up in the
// startup log rather than as an empty grid.
func checkBackend(ctx context.Context, client *api.Client, apiURL string) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	count, err := client.PhotoCount(checkCtx)
	photos := 0
	if err == nil {
		photos = count.Count
	}
	startup.LogBackendCheck(apiURL, photos, err)
}

func prefetchWorkers(configured int) int {
	if configured > 0 {
		return configured
	}
	return workers.ForIO(16)
}

type dirtyLister interface {
	Dirty() []int
}

type cacheStatter interface {
	Stats(ctx context.Context) (imagecache.Stats, error)
}

type photoCounter interface {
	Len() int
}

// clientStatsAdapter adapts the running components to metrics.StatsProvider
type clientStatsAdapter struct {
	gallery photoCounter
	dirty   dirtyLister
	cache   cacheStatter
}

// GetStats implements metrics.StatsProvider
func (a *clientStatsAdapter) GetStats() metrics.Stats {
	stats := metrics.Stats{
		PhotosLoaded: a.gallery.Len(),
		DirtyPhotos:  len(a.dirty.Dirty()),
	}
	if a.cache == nil {
		return stats
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cs, err := a.cache.Stats(ctx)
	if err != nil {
		logging.Warn("Failed to read image cache stats: %v", err)
		return stats
	}
	stats.CachedImages = cs.Count
	stats.CacheSizeBytes = cs.Bytes
	return stats
}
