/*
Package workers sizes and runs small worker pools.

# Sizing

When running in a container, the number of usable CPUs may be limited by
cgroup constraints. GOMAXPROCS follows those limits while runtime.NumCPU
reports the host count, so the helpers here size pools from GOMAXPROCS:

	// Decoding and scaling previews: 1 worker per CPU, at most 4
	n := workers.ForCPU(4)

	// Prefetching thumbnails over HTTP: 2 workers per CPU, at most 8
	n := workers.ForIO(8)

The PREFETCH_WORKERS environment variable overrides the calculation, still
capped by the limit:

	PREFETCH_WORKERS=2 bokeh-viewer

# Running

ForEach fans a slice out over a fixed number of goroutines and waits for
them:

	workers.ForEach(ctx, workers.ForIO(8), urls, func(ctx context.Context, u string) {
		_, _ = loader.Load(ctx, u)
	})

Cancelling ctx stops new items from being handed out; calls already running
see the cancelled context.
*/
package workers
