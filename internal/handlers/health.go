package handlers

import (
	"net/http"
	"runtime"
	"time"

	"bokeh-viewer/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Gallery progress
	PhotosLoaded int `json:"photosLoaded"`
	TotalPhotos  int `json:"totalPhotos,omitempty"`

	// Job poller
	PollMode   string `json:"pollMode,omitempty"`
	LastPoll   string `json:"lastPoll,omitempty"`
	PollError  string `json:"pollError,omitempty"`
	ActiveJobs int    `json:"activeJobs"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the viewer. The backend being
// unreachable makes the viewer degraded, not unhealthy.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready()

	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.startedAt).Round(time.Second).String(),
		PhotosLoaded: h.gallery.Len(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if h.loader != nil {
		response.TotalPhotos = h.loader.Total()
	}

	if ready {
		response.Status = statusHealthy
	} else {
		response.Status = statusStarting
	}

	if h.jobs != nil {
		st := h.jobs.Latest()
		if !st.PolledAt.IsZero() {
			response.PollMode = st.Mode.String()
			response.LastPoll = st.PolledAt.Format(time.RFC3339)
		}
		if st.Stats != nil {
			response.ActiveJobs = st.Stats.ActiveJobs
		}
		if st.Err != nil {
			response.PollError = st.Err.Error()
			response.Status = statusDegraded
		}
	}

	w.Header().Set("Content-Type", "application/json")

	// Return 503 only if not ready at all
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the first gallery page has loaded
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.ready() {
		writeJSONStatus(w, http.StatusOK, "ready")
	} else {
		writeJSONStatus(w, http.StatusServiceUnavailable, "not_ready")
	}
}
