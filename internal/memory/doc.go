// Package memory keeps decoded images from exhausting memory.
//
// [ConfigureFromEnv] sets the Go memory limit at startup from GOMEMLIMIT or
// MEMORY_LIMIT and MEMORY_RATIO.
//
// [Monitor] samples heap usage against that limit. Above the high water mark
// [Monitor.ShouldThrottle] reports true and thumbnail prefetch is skipped;
// above the critical mark image work pauses and a GC is forced until usage
// falls back below the high water mark.
//
//	mon := memory.NewMonitor(memory.DefaultConfig())
//	mon.Start()
//	defer mon.Stop()
//	loader.SetThrottle(mon)
package memory
