// Package main provides the entry point for bokeh-viewer, a terminal client
// for a self-hosted photo library.
//
// bokeh-viewer browses the library served by the photo backend as a grid of
// thumbnails drawn with true-color half blocks, grouped by year or folder,
// and opens single photos in a viewer that supports zoom, an info panel and
// rotation. Rotations are shown immediately, persisted in the background and
// followed by a thumbnail regeneration once the user moves on.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT when not already set
//  2. Configuration Loading: Reads environment variables and the optional .env file
//  3. Image Cache: Opens the SQLite image cache under CACHE_DIR
//  4. Backend Check: One request to confirm API_URL answers
//  5. Component Initialization:
//     - Memory Monitor: Throttles prefetching under heap pressure
//     - Gallery: Paged photo list, year and folder scopes, new-photo watcher
//     - Rotation Controller and Regeneration Scheduler
//     - Job Poller: Polls backend jobs, fast while work is running
//     - Metrics Collector: Gathers Prometheus metrics
//  6. Status Server: Optional local HTTP server (health, metrics, state)
//  7. Terminal: Raw mode screen and key loop; logs move to bokeh-viewer.log
//  8. Graceful Shutdown: On quit or SIGINT/SIGTERM/SIGHUP
//
// # Keys
//
// Browsing:
//
//   - Arrows: Move the selection
//   - Enter: Open the selected photo, year or folder
//   - Esc: Go back
//   - g / y / f / j: Grid, years, folders, jobs
//   - o: Toggle newest or oldest first
//   - t: Sort by date taken or by recently added
//   - s: Start a library scan
//   - a: Regenerate all thumbnails
//   - x: Cancel the selected job (Enter confirms)
//   - q: Quit
//
// Viewer:
//
//   - Left / Right: Previous and next photo
//   - r / l: Rotate clockwise and counter-clockwise
//   - + / -: Zoom in and out
//   - i: Toggle the info panel
//   - Esc: Close the viewer
//   - Ctrl+C: Quit
//
// # Graceful Shutdown
//
//  1. Close the viewer and dispatch pending thumbnail regenerations
//  2. Stop the job poller, metrics collector and memory monitor
//  3. Shut down the status server (30s timeout)
//  4. Close the image cache
//  5. Restore the terminal
//
// # Related Packages
//
//   - [bokeh-viewer/internal/api]: Photo backend client
//   - [bokeh-viewer/internal/gallery]: Loaded photos, scopes and buckets
//   - [bokeh-viewer/internal/rotation]: Optimistic rotation with rollback
//   - [bokeh-viewer/internal/regen]: Thumbnail regeneration scheduling
//   - [bokeh-viewer/internal/viewer]: Single photo viewer session
//   - [bokeh-viewer/internal/ui]: Browse views and rendering
//   - [bokeh-viewer/internal/startup]: Configuration and lifecycle logging
//
// See cmd/bokehctl for the non-interactive command line client.
package main
