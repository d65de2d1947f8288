// Package ui is the interactive front end of the viewer.
//
// An [App] owns the browse views shown while the viewer is closed: the paged
// grid, the year list with a month-grouped detail view, the folder tree with
// recursive folder views, and the job panel. Keys go to the open
// [viewer.Session] when there is one.
//
// Rendering produces a [terminal.Frame]. Thumbnails are resolved through the
// session-aware URL resolver, so a rotated photo keeps its cache-busting URL
// in every view, then loaded and decoded in the background; the screen is
// redrawn through Deps.OnChange when they arrive. The rows just below the
// screen are prefetched into the image cache.
//
// Network work triggered by keys runs on background goroutines. [App.Wait]
// blocks until all of it has finished.
package ui
