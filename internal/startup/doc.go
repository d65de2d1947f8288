// Package startup handles configuration loading and the startup/shutdown
// logging of the viewer.
//
// # Configuration
//
// Configuration comes from environment variables, optionally seeded from a
// .env file (path overridable with ENV_FILE; variables already set in the
// environment win). [Load] is silent and suited to the CLI and tests;
// [LoadConfig] also prints the banner, logs the configuration block and
// prepares the cache directory.
//
//   - API_URL: Photo backend base URL (default: http://localhost:8000)
//   - CACHE_DIR: Image cache and log directory (default: user cache dir + /bokeh-viewer)
//   - PER_PAGE: Gallery page size, 1-1000 (default: 100)
//   - SORT / ORDER: date_taken|created_at and asc|desc (default: date_taken desc)
//   - POLL_FAST_INTERVAL: Job poll interval while jobs are active (default: 2s)
//   - POLL_SLOW_INTERVAL: Job poll interval while idle (default: 30s)
//   - REGEN_GRACE: How long a regenerated thumbnail stays cache-busted (default: 5s)
//   - ROTATION_ROLLBACK: Restore the previous rotation when a request fails (default: true)
//   - REQUEST_TIMEOUT: Per-request HTTP timeout (default: 30s)
//   - API_RATE_LIMIT: Backend requests per second, 0 disables (default: 20)
//   - REGEN_RATE_LIMIT: Thumbnail regenerations per second (default: 4)
//   - IMAGE_RETRIES / IMAGE_RETRY_BACKOFF: Image load attempts and first backoff (default: 5, 1s)
//   - CACHE_MAX_BYTES: Image cache size limit, negative disables eviction (default: 256MiB)
//   - PREFETCH_WORKERS: Prefetch concurrency, 0 picks one from the CPU count
//   - STATUS_ENABLED / STATUS_PORT: Local status server (default: true, 9191)
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: false)
//
// Every invalid value is reported at once, joined into a single error.
//
// # Lifecycle Logging
//
//   - [LogCacheInit]: Image cache open timing
//   - [LogBackendCheck]: First contact with the backend
//   - [LogHTTPRoutes]: Registered status routes (debug level)
//   - [LogServerStarted]: Status server endpoint and startup duration
//   - [LogShutdownInitiated], [LogShutdownStep], [LogShutdownComplete]
//
// # Example Usage
//
//	cfg, err := startup.LoadConfig()
//	if err != nil {
//	    startup.LogFatal("Configuration error: %v", err)
//	}
//	startup.LogCacheInit(cfg.CacheDBPath, time.Since(start))
//	...
//	startup.LogShutdownInitiated("SIGTERM")
//	startup.LogShutdownComplete()
package startup
