package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
)

func TestNewResponseWriter(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.Zero(t, rw.bytesWritten)
	assert.False(t, rw.wroteHeader)
}

func TestResponseWriterWriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	rw.WriteHeader(http.StatusNotFound)
	// Write header again - should be ignored
	rw.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusNotFound, rw.statusCode)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResponseWriterWrite(t *testing.T) {
	w := httptest.NewRecorder()
	rw := newResponseWriter(w)

	for _, chunk := range []string{"hello ", "world"} {
		_, err := rw.Write([]byte(chunk))
		require.NoError(t, err)
	}

	assert.EqualValues(t, 11, rw.bytesWritten)
	assert.True(t, rw.wroteHeader)
	assert.Equal(t, "hello world", w.Body.String())
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"a\nb\rc", "a b c"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tkept", "tab\tkept"},
		{"bell\x07", "bell"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeLogField(tt.in), "input %q", tt.in)
	}
}

func TestShouldSkip(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		config LoggingConfig
		want   bool
	}{
		{"metrics skipped by default", "/metrics", DefaultLoggingConfig(), true},
		{"health skipped by default", "/healthz", DefaultLoggingConfig(), true},
		{"api logged", "/api/state", DefaultLoggingConfig(), false},
		{"health logged when enabled", "/readyz", LoggingConfig{LogHealthChecks: true}, false},
		{"custom prefix", "/api/photos", LoggingConfig{SkipPaths: []string{"/api/"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldSkip(tt.path, tt.config))
		})
	}
}

func TestFormatLine(t *testing.T) {
	l := NewW3CLogger(DefaultLoggingConfig())
	l.now = func() time.Time { return time.Date(2024, time.June, 1, 12, 30, 0, 0, time.UTC) }

	req := httptest.NewRequest(http.MethodGet, "/api/photos?year=2024", http.NoBody)
	req.RemoteAddr = "127.0.0.1:51234"
	req.Header.Set("User-Agent", "curl/8.0 (linux)")
	rw := newResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte("12345"))

	got := l.formatLine(req, rw, 42*time.Millisecond)
	want := `2024-06-01 12:30:00 127.0.0.1 GET /api/photos year=2024 200 5 42 "curl/8.0 (linux)"`
	assert.Equal(t, want, got)
}

func TestLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(prev) })

	handler := Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	for _, path := range []string{"/healthz", "/api/jobs"} {
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	out := buf.String()
	assert.NotContains(t, out, "/healthz", "health checks are not logged")
	assert.Contains(t, out, "GET /api/jobs - 418")
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetricsMiddleware(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()))
	r.HandleFunc("/api/state", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	stateCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/state", "200")
	healthCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/healthz", "200")
	beforeState := counterValue(t, stateCounter)
	beforeHealth := counterValue(t, healthCounter)

	for _, path := range []string{"/api/state", "/api/state", "/healthz"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	assert.InDelta(t, 2, counterValue(t, stateCounter)-beforeState, 0)
	assert.InDelta(t, 0, counterValue(t, healthCounter)-beforeHealth, 0, "health checks are skipped")
}

func TestRouteLabel(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody)
	assert.Equal(t, unmatchedRoute, routeLabel(req))

	r := mux.NewRouter()
	var label string
	r.HandleFunc("/api/photos", func(_ http.ResponseWriter, r *http.Request) {
		label = routeLabel(r)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/photos?limit=5", http.NoBody))
	assert.Equal(t, "/api/photos", label)
}
