package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
	"bokeh-viewer/internal/workers"
)

// ErrUnavailable is returned once every attempt to load an image failed.
// Callers show a placeholder.
var ErrUnavailable = errors.New("image unavailable")

// Fetcher downloads an image.
type Fetcher interface {
	FetchImage(ctx context.Context, url string) (*api.Image, error)
}

// Cache stores image bytes by URL.
type Cache interface {
	Get(ctx context.Context, url string) (data []byte, contentType string, ok bool, err error)
	Put(ctx context.Context, url, contentType string, data []byte) error
}

// Throttle reports memory pressure. Prefetch skips work while it is set.
type Throttle interface {
	ShouldThrottle() bool
}

// Loader fetches images through a cache.
type Loader struct {
	fetcher  Fetcher
	cache    Cache
	retry    RetryConfig
	throttle Throttle
}

// NewLoader creates a loader. cache may be nil.
func NewLoader(fetcher Fetcher, cache Cache, retry RetryConfig) *Loader {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.MaxBackoff <= 0 {
		retry.MaxBackoff = retry.InitialBackoff
	}
	return &Loader{fetcher: fetcher, cache: cache, retry: retry}
}

// SetThrottle installs a memory pressure signal for Prefetch. Call before
// the loader is shared.
func (l *Loader) SetThrottle(t Throttle) {
	l.throttle = t
}

// Load returns the image at url, from the cache when present. A cache-busted
// URL is a different key, so a new rotation version or regeneration stamp
// always reaches the network.
func (l *Loader) Load(ctx context.Context, url string) (*api.Image, error) {
	if l.cache != nil {
		data, ct, ok, err := l.cache.Get(ctx, url)
		if err != nil {
			logging.Warn("Image cache read failed for %s: %v", url, err)
		} else if ok {
			metrics.ImageLoadsTotal.WithLabelValues("cache", "success").Inc()
			return &api.Image{URL: url, ContentType: ct, Data: data}, nil
		}
	}

	img, err := l.fetch(ctx, url)
	if err != nil {
		metrics.ImageLoadsTotal.WithLabelValues("network", "error").Inc()
		return nil, err
	}
	metrics.ImageLoadsTotal.WithLabelValues("network", "success").Inc()

	if l.cache != nil {
		if err := l.cache.Put(ctx, url, img.ContentType, img.Data); err != nil {
			logging.Warn("Image cache write failed for %s: %v", url, err)
		}
	}
	return img, nil
}

// fetch performs the network request with exponential backoff.
func (l *Loader) fetch(ctx context.Context, url string) (*api.Image, error) {
	start := time.Now()
	defer func() {
		metrics.ImageLoadDuration.Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	backoff := l.retry.InitialBackoff

	for attempt := 1; attempt <= l.retry.MaxAttempts; attempt++ {
		img, err := l.fetcher.FetchImage(ctx, url)
		if err == nil {
			if attempt > 1 {
				logging.Info("Image load succeeded on attempt %d for %s", attempt, url)
			}
			return img, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, fmt.Errorf("load %s: %w", url, err)
		}

		// Don't sleep after the last attempt
		if attempt < l.retry.MaxAttempts {
			metrics.ImageLoadRetries.Inc()
			logging.Debug("Image load failed for %s, retrying in %v (attempt %d/%d): %v",
				url, backoff, attempt, l.retry.MaxAttempts, err)
			if err := sleep(ctx, backoff); err != nil {
				return nil, fmt.Errorf("load %s: %w", url, err)
			}

			backoff *= 2
			if backoff > l.retry.MaxBackoff {
				backoff = l.retry.MaxBackoff
			}
		}
	}

	logging.Warn("Image load failed after %d attempts for %s: %v", l.retry.MaxAttempts, url, lastErr)
	return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, url, lastErr)
}

// Prefetch warms the cache with urls using at most n concurrent fetches and
// returns how many loaded. Failures are logged and skipped, and so is every
// url reached while the throttle reports memory pressure.
func (l *Loader) Prefetch(ctx context.Context, urls []string, n int) int {
	if len(urls) == 0 {
		return 0
	}

	done := make(chan bool, len(urls))
	metrics.PrefetchQueueDepth.Add(float64(len(urls)))

	workers.ForEach(ctx, n, urls, func(ctx context.Context, url string) {
		defer metrics.PrefetchQueueDepth.Dec()
		if l.throttle != nil && l.throttle.ShouldThrottle() {
			metrics.PrefetchThrottled.Inc()
			done <- false
			return
		}
		_, err := l.Load(ctx, url)
		if err != nil {
			logging.Debug("Prefetch of %s failed: %v", url, err)
		}
		done <- err == nil
	})
	close(done)

	handled, loaded := 0, 0
	for ok := range done {
		handled++
		if ok {
			loaded++
		}
	}
	if skipped := len(urls) - handled; skipped > 0 {
		metrics.PrefetchQueueDepth.Sub(float64(skipped))
	}
	return loaded
}
