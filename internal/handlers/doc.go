// Package handlers serves the local status API of the viewer: health probes,
// build information, Prometheus metrics and JSON snapshots of the gallery,
// the job list and the image cache.
//
// Every endpoint is read-only. The viewer state is owned by the terminal
// session; the handlers only take snapshots of it.
package handlers
