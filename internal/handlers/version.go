package handlers

import (
	"net/http"
	"time"

	"bokeh-viewer/internal/startup"
)

// VersionResponse is the build the viewer was compiled from plus how long
// this instance has been up.
type VersionResponse struct {
	startup.BuildInfo
	StartedAt string `json:"startedAt"`
	Uptime    string `json:"uptime"`
}

// GetVersion reports which viewer build is attached to this terminal.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	response := VersionResponse{
		BuildInfo: startup.GetBuildInfo(),
		StartedAt: h.startedAt.UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, response)
}
