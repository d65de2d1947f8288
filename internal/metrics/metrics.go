package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics (local status server)
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_http_requests_total",
			Help: "Total number of HTTP requests served by the status server",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bokeh_viewer_http_request_duration_seconds",
			Help:    "Status server request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_http_requests_in_flight",
			Help: "Number of status server requests currently being processed",
		},
	)
)

// Backend API client metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_api_requests_total",
			Help: "Total number of requests sent to the photo backend",
		},
		[]string{"endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bokeh_viewer_api_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	APIRateLimitWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bokeh_viewer_api_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the client-side rate limiter",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
	)
)

// Rotation metrics
var (
	RotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_rotations_total",
			Help: "Total number of rotation edits by direction and result",
		},
		[]string{"direction", "result"}, // result: success, error, in_flight
	)

	RotationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_rotations_in_flight",
			Help: "Number of rotation PATCH requests currently outstanding",
		},
	)

	RotationRollbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_rotation_rollbacks_total",
			Help: "Total number of optimistic rotations reverted after a failed request",
		},
	)
)

// Thumbnail regeneration metrics
var (
	RegenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_regenerations_total",
			Help: "Total number of thumbnail regeneration requests by trigger and result",
		},
		[]string{"trigger", "result"}, // trigger: leave, flush
	)

	RegenerationsDirty = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_regenerations_dirty",
			Help: "Number of photos rotated but not yet sent for regeneration",
		},
	)
)

// Gallery metrics
var (
	GalleryPhotosLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_gallery_photos_loaded",
			Help: "Number of photos in the grid order",
		},
	)

	GalleryMergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_gallery_merges_total",
			Help: "Total number of rotation merges by outcome",
		},
		[]string{"result"}, // applied, stale, unknown
	)

	GalleryNewPhotosTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_gallery_new_photos_total",
			Help: "Total number of photos inserted from a running scan",
		},
	)
)

// Job poller metrics
var (
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_polls_total",
			Help: "Total number of job polls by result",
		},
		[]string{"result"},
	)

	PollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bokeh_viewer_poll_duration_seconds",
			Help:    "Job poll round trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PollerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_poller_active",
			Help: "1 when the job poller runs at the fast interval, 0 when idle",
		},
	)

	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_active_jobs",
			Help: "Number of running or pending backend jobs at the last poll",
		},
	)

	LibraryPhotos = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_library_photos",
			Help: "Total photos reported by the backend",
		},
	)
)

// Image cache metrics
var (
	ImageCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_image_cache_hits_total",
			Help: "Total number of image cache hits",
		},
	)

	ImageCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_image_cache_misses_total",
			Help: "Total number of image cache misses",
		},
	)

	ImageCacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_image_cache_evictions_total",
			Help: "Total number of image cache entries evicted",
		},
	)

	ImageCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_image_cache_size_bytes",
			Help: "Total size of cached images in bytes",
		},
	)

	ImageCacheCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_image_cache_count",
			Help: "Number of cached images",
		},
	)
)

// Image loading metrics
var (
	ImageLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_image_loads_total",
			Help: "Total number of image loads by source and result",
		},
		[]string{"source", "result"}, // source: cache, network
	)

	ImageLoadRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_image_load_retries_total",
			Help: "Total number of image fetch retries",
		},
	)

	ImageLoadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bokeh_viewer_image_load_duration_seconds",
			Help:    "Image load duration including retries",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ImageDecodeByFormat = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_image_decode_total",
			Help: "Total number of decoded images by format",
		},
		[]string{"format"},
	)

	PrefetchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_prefetch_queue_depth",
			Help: "Number of thumbnails waiting to be prefetched",
		},
	)

	PrefetchThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_prefetch_throttled_total",
			Help: "Prefetches skipped because of memory pressure",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_memory_usage_ratio",
			Help: "Go heap allocation as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_memory_paused",
			Help: "Whether image work is paused due to memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bokeh_viewer_memory_gc_pauses_total",
			Help: "Number of times memory pressure triggered a pause and forced GC",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bokeh_viewer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
