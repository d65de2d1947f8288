package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bokeh-viewer/internal/api"
	"bokeh-viewer/internal/jobs"
)

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		started    bool
		status     jobs.Status
		wantCode   int
		wantStatus string
	}{
		{
			name:       "starting before the first page",
			started:    false,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: statusStarting,
		},
		{
			name:       "healthy after the first page",
			started:    true,
			wantCode:   http.StatusOK,
			wantStatus: statusHealthy,
		},
		{
			name:       "degraded when polling fails",
			started:    true,
			status:     jobs.Status{Err: errors.New("connection refused")},
			wantCode:   http.StatusOK,
			wantStatus: statusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, loader, jobStatus := newTestHandlers(t)
			loader.started = tt.started
			jobStatus.status = tt.status

			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			w := httptest.NewRecorder()
			h.HealthCheck(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var response HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantStatus, response.Status)
			assert.Equal(t, tt.started, response.Ready)
			assert.Equal(t, 3, response.PhotosLoaded)
		})
	}
}

func TestHealthCheckPollInfo(t *testing.T) {
	h, _, jobStatus := newTestHandlers(t)
	jobStatus.status = jobs.Status{
		Mode:     jobs.ModeActive,
		PolledAt: time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC),
		Stats:    &api.SystemStats{ActiveJobs: 2},
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()
	h.HealthCheck(w, req)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, jobs.ModeActive.String(), response.PollMode)
	assert.Equal(t, "2024-06-01T12:00:00Z", response.LastPoll)
	assert.Equal(t, 2, response.ActiveJobs)
	assert.Equal(t, 40, response.TotalPhotos)
	assert.NotEmpty(t, response.GoVersion)
	assert.NotZero(t, response.NumCPU)
}

// =============================================================================
// Liveness and Readiness Tests
// =============================================================================

func TestLivenessCheck(t *testing.T) {
	h := &Handlers{}

	tests := []struct {
		method   string
		wantBody bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/livez", http.NoBody)
			w := httptest.NewRecorder()
			h.LivenessCheck(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.Len() > 0, "body: %q", w.Body.String())
		})
	}
}

func TestReadinessCheck(t *testing.T) {
	h, loader, _ := newTestHandlers(t)

	for _, started := range []bool{false, true} {
		loader.started = started

		req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
		w := httptest.NewRecorder()
		h.ReadinessCheck(w, req)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))

		wantCode, wantStatus := http.StatusServiceUnavailable, "not_ready"
		if started {
			wantCode, wantStatus = http.StatusOK, "ready"
		}
		assert.Equal(t, wantCode, w.Code, "started=%v", started)
		assert.Equal(t, wantStatus, body["status"], "started=%v", started)
	}
}

func TestReadinessWithoutLoader(t *testing.T) {
	h := New(Deps{Gallery: newTestGallery()})

	req := httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody)
	w := httptest.NewRecorder()
	h.ReadinessCheck(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
