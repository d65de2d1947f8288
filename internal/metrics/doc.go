// Package metrics provides Prometheus instrumentation for the photo viewer.
//
// All metrics are prefixed with "bokeh_viewer_" and registered through
// promauto at package initialization. They are exposed by the local status
// server on /metrics.
//
// # Metric Categories
//
// ## API Metrics
//
// Track requests sent to the photo backend:
//   - APIRequestsTotal: Counter by endpoint and status
//   - APIRequestDuration: Histogram by endpoint
//   - APIRateLimitWaitDuration: Histogram of time spent in the client limiter
//
// ## Rotation and Regeneration Metrics
//
//   - RotationsTotal: Counter by direction and result (success, error, in_flight)
//   - RotationsInFlight: Gauge of outstanding PATCH requests
//   - RotationRollbacksTotal: Counter of reverted optimistic rotations
//   - RegenerationsTotal: Counter by trigger (leave, flush) and result
//   - RegenerationsDirty: Gauge of photos awaiting regeneration
//
// ## Poller Metrics
//
//   - PollsTotal, PollDuration: job poll outcomes and latency
//   - PollerActive: 1 while polling at the fast interval
//   - ActiveJobs, LibraryPhotos: backend state at the last poll
//
// ## Image Metrics
//
//   - ImageCacheHits, ImageCacheMisses, ImageCacheEvictions
//   - ImageCacheSize, ImageCacheCount
//   - ImageLoadsTotal, ImageLoadRetries, ImageLoadDuration
//   - ImageDecodeByFormat, PrefetchQueueDepth
//
// # Collector
//
// Gauges derived from in-memory state are refreshed by a Collector:
//
//	collector := metrics.NewCollector(statsProvider, 15*time.Second)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Image cache hit rate:
//
//	rate(bokeh_viewer_image_cache_hits_total[5m]) /
//	(rate(bokeh_viewer_image_cache_hits_total[5m]) + rate(bokeh_viewer_image_cache_misses_total[5m]))
//
// Failed rotations:
//
//	sum(rate(bokeh_viewer_rotations_total{result="error"}[5m]))
//
// Backend P95 latency by endpoint:
//
//	histogram_quantile(0.95, sum(rate(bokeh_viewer_api_request_duration_seconds_bucket[5m])) by (le, endpoint))
package metrics
