package regen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bokeh-viewer/internal/thumbnail"
)

type fakeRegenerator struct {
	mu    sync.Mutex
	calls map[int]int
	fail  map[int]error
}

func newFakeRegenerator() *fakeRegenerator {
	return &fakeRegenerator{calls: make(map[int]int), fail: make(map[int]error)}
}

func (f *fakeRegenerator) RegenerateThumbnail(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	return f.fail[id]
}

func (f *fakeRegenerator) count(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func TestOnLeaveIsIdempotent(t *testing.T) {
	fake := newFakeRegenerator()
	s := NewScheduler(fake, nil, Options{})
	ctx := context.Background()

	s.MarkDirty(42)
	assert.True(t, s.OnLeave(ctx, 42))
	assert.False(t, s.OnLeave(ctx, 42))
	s.Wait()

	assert.Equal(t, 1, fake.count(42))
	assert.False(t, s.IsDirty(42))
}

func TestOnLeaveCleanPhotoIsNoop(t *testing.T) {
	fake := newFakeRegenerator()
	s := NewScheduler(fake, nil, Options{})

	assert.False(t, s.OnLeave(context.Background(), 5))
	s.Wait()
	assert.Equal(t, 0, fake.count(5))
}

func TestMarkDirtyAgainAfterLeave(t *testing.T) {
	fake := newFakeRegenerator()
	s := NewScheduler(fake, nil, Options{})
	ctx := context.Background()

	s.MarkDirty(1)
	s.MarkDirty(1)
	s.OnLeave(ctx, 1)
	s.MarkDirty(1)
	s.OnLeave(ctx, 1)
	s.Wait()

	assert.Equal(t, 2, fake.count(1))
}

func TestFlush(t *testing.T) {
	fake := newFakeRegenerator()
	s := NewScheduler(fake, nil, Options{})
	ctx := context.Background()

	for _, id := range []int{3, 1, 2} {
		s.MarkDirty(id)
	}
	assert.Equal(t, []int{1, 2, 3}, s.Dirty())

	assert.Equal(t, 3, s.Flush(ctx))
	assert.Equal(t, 0, s.Flush(ctx))
	s.Wait()

	for _, id := range []int{1, 2, 3} {
		assert.Equal(t, 1, fake.count(id), "photo %d", id)
	}
	assert.Empty(t, s.Dirty())
}

func TestStampCapturedOncePerDispatch(t *testing.T) {
	fake := newFakeRegenerator()
	stamps := thumbnail.NewStamps(5 * time.Second)
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(fake, stamps, Options{Now: func() time.Time { return clock }})

	s.MarkDirty(42)
	s.OnLeave(context.Background(), 42)
	s.Wait()

	first, ok := stamps.Lookup(42, clock.Add(time.Second))
	require.True(t, ok)
	second, ok := stamps.Lookup(42, clock.Add(2*time.Second))
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, clock, first)

	_, ok = stamps.Lookup(42, clock.Add(6*time.Second))
	assert.False(t, ok)
}

func TestFailureIsNotRetried(t *testing.T) {
	fake := newFakeRegenerator()
	fake.fail[9] = errors.New("backend down")

	var mu sync.Mutex
	var results []error
	s := NewScheduler(fake, nil, Options{OnResult: func(_ int, err error) {
		mu.Lock()
		results = append(results, err)
		mu.Unlock()
	}})

	s.MarkDirty(9)
	s.OnLeave(context.Background(), 9)
	s.Wait()

	assert.Equal(t, 1, fake.count(9))
	assert.False(t, s.IsDirty(9), "dirty flag is not restored")
	require.Len(t, results, 1)
	assert.Error(t, results[0])
}

func TestDispatchSurvivesCancelledContext(t *testing.T) {
	fake := newFakeRegenerator()
	s := NewScheduler(fake, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	s.MarkDirty(4)
	cancel()
	s.OnLeave(ctx, 4)
	s.Wait()

	assert.Equal(t, 1, fake.count(4))
}

func TestRateLimitedFlush(t *testing.T) {
	fake := newFakeRegenerator()
	s := NewScheduler(fake, nil, Options{RateLimit: 50, Burst: 1})

	for id := 1; id <= 5; id++ {
		s.MarkDirty(id)
	}
	start := time.Now()
	s.Flush(context.Background())
	s.Wait()

	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond, "five dispatches at 50/s with burst 1 take at least 80ms")
	for id := 1; id <= 5; id++ {
		assert.Equal(t, 1, fake.count(id))
	}
}
