package handlers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bokeh-viewer/internal/logging"
	"bokeh-viewer/internal/metrics"
)

// scrapeLogger routes promhttp gather errors into the viewer log.
type scrapeLogger struct{}

func (scrapeLogger) Println(v ...interface{}) {
	logging.Warn("Metrics scrape: %s", fmt.Sprint(v...))
}

// MetricsHandler serves the bokeh_viewer_* series. The gallery and
// regeneration gauges are refreshed on every scrape so /metrics agrees with
// /api/state rather than lagging by a collector interval.
func (h *Handlers) MetricsHandler() http.Handler {
	exporter := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:      scrapeLogger{},
		ErrorHandling: promhttp.ContinueOnError,
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.refreshGauges()
		exporter.ServeHTTP(w, r)
	})
}

func (h *Handlers) refreshGauges() {
	if h.gallery != nil {
		metrics.GalleryPhotosLoaded.Set(float64(h.gallery.Len()))
	}
	if h.dirty != nil {
		metrics.RegenerationsDirty.Set(float64(len(h.dirty.Dirty())))
	}
}
