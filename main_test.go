package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"bokeh-viewer/internal/imagecache"
	"bokeh-viewer/internal/metrics"
)

type mockGallery struct{ n int }

func (m mockGallery) Len() int { return m.n }

type mockDirty struct{ ids []int }

func (m mockDirty) Dirty() []int { return m.ids }

type mockCache struct {
	stats imagecache.Stats
	err   error
}

func (m mockCache) Stats(context.Context) (imagecache.Stats, error) {
	return m.stats, m.err
}

func TestClientStatsAdapter(t *testing.T) {
	t.Run("GetStats combines gallery, dirty set and cache", func(t *testing.T) {
		adapter := &clientStatsAdapter{
			gallery: mockGallery{n: 250},
			dirty:   mockDirty{ids: []int{4, 9}},
			cache:   mockCache{stats: imagecache.Stats{Count: 120, Bytes: 48 << 20}},
		}

		// Verify the adapter implements the interface
		var _ metrics.StatsProvider = adapter

		stats := adapter.GetStats()

		assert.Equal(t, 250, stats.PhotosLoaded)
		assert.Equal(t, 2, stats.DirtyPhotos)
		assert.Equal(t, 120, stats.CachedImages)
		assert.Equal(t, int64(48<<20), stats.CacheSizeBytes)
	})

	t.Run("cache errors leave cache stats empty", func(t *testing.T) {
		adapter := &clientStatsAdapter{
			gallery: mockGallery{n: 3},
			dirty:   mockDirty{},
			cache:   mockCache{err: errors.New("database is locked")},
		}

		stats := adapter.GetStats()

		assert.Equal(t, 3, stats.PhotosLoaded)
		assert.Zero(t, stats.CachedImages)
		assert.Zero(t, stats.CacheSizeBytes)
	})

	t.Run("nil cache is allowed", func(t *testing.T) {
		adapter := &clientStatsAdapter{gallery: mockGallery{n: 1}, dirty: mockDirty{ids: []int{1}}}

		stats := adapter.GetStats()

		assert.Equal(t, 1, stats.DirtyPhotos)
	})
}

func TestPrefetchWorkers(t *testing.T) {
	t.Setenv("PREFETCH_WORKERS", "")

	assert.Equal(t, 6, prefetchWorkers(6))

	got := prefetchWorkers(0)
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 16)
}
