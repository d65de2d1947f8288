package ui

import (
	"context"
	"image"
	"sync"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/media"
)

// ImageLoader fetches image bytes, usually through the on-disk cache.
type ImageLoader interface {
	Load(ctx context.Context, url string) (*api.Image, error)
}

// imageState is where one URL is in the decode pipeline.
type imageState int

const (
	imageMissing imageState = iota
	imageLoading
	imageReady
	imageFailed
)

// imageStore keeps decoded images by URL and loads missing ones in the
// background. It holds at most limit images; the oldest are dropped first.
type imageStore struct {
	loader  ImageLoader
	limit   int
	onReady func()
	sem     chan struct{}

	mu      sync.Mutex
	images  map[string]image.Image
	order   []string
	pending map[string]struct{}
	failed  map[string]struct{}
	wg      sync.WaitGroup
}

func newImageStore(loader ImageLoader, limit, workers int, onReady func()) *imageStore {
	if limit < 1 {
		limit = 1
	}
	if workers < 1 {
		workers = 1
	}
	if onReady == nil {
		onReady = func() {}
	}
	return &imageStore{
		loader:  loader,
		limit:   limit,
		onReady: onReady,
		sem:     make(chan struct{}, workers),
		images:  make(map[string]image.Image),
		pending: make(map[string]struct{}),
		failed:  make(map[string]struct{}),
	}
}

// get returns the image for url, starting a load when it is unknown.
func (s *imageStore) get(ctx context.Context, url string) (image.Image, imageState) {
	if url == "" {
		return nil, imageMissing
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if img, ok := s.images[url]; ok {
		return img, imageReady
	}
	if _, ok := s.failed[url]; ok {
		return nil, imageFailed
	}
	if _, ok := s.pending[url]; ok {
		return nil, imageLoading
	}

	s.pending[url] = struct{}{}
	s.wg.Add(1)
	go s.load(ctx, url)
	return nil, imageLoading
}

func (s *imageStore) load(ctx context.Context, url string) {
	defer s.wg.Done()

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		s.finish(url, nil, false)
		return
	}

	var img image.Image
	data, err := s.loader.Load(ctx, url)
	if err == nil {
		img, _, err = media.Decode(data.Data)
	}
	if err != nil {
		if ctx.Err() == nil {
			logging.Debug("Image %s unavailable: %v", url, err)
			s.finish(url, nil, true)
		} else {
			s.finish(url, nil, false)
		}
		return
	}
	s.finish(url, img, false)
}

// finish records the outcome. A load abandoned by cancellation leaves no
// trace so it is retried later.
func (s *imageStore) finish(url string, img image.Image, failed bool) {
	s.mu.Lock()
	delete(s.pending, url)
	switch {
	case img != nil:
		s.images[url] = img
		s.order = append(s.order, url)
		for len(s.order) > s.limit {
			delete(s.images, s.order[0])
			s.order = s.order[1:]
		}
	case failed:
		s.failed[url] = struct{}{}
	}
	s.mu.Unlock()

	if img != nil || failed {
		s.onReady()
	}
}

// len returns the number of decoded images held.
func (s *imageStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// wait blocks until every started load finished.
func (s *imageStore) wait() {
	s.wg.Wait()
}
