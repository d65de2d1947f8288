package metrics

import (
	"time"

	"bokeh-viewer/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current client-side statistics
type Stats struct {
	PhotosLoaded   int
	DirtyPhotos    int
	CachedImages   int
	CacheSizeBytes int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	GalleryPhotosLoaded.Set(float64(stats.PhotosLoaded))
	RegenerationsDirty.Set(float64(stats.DirtyPhotos))
	ImageCacheCount.Set(float64(stats.CachedImages))
	ImageCacheSize.Set(float64(stats.CacheSizeBytes))

	logging.Debug("Metrics collected: photos=%d, dirty=%d, cached=%d (%d bytes)",
		stats.PhotosLoaded, stats.DirtyPhotos, stats.CachedImages, stats.CacheSizeBytes)
}
