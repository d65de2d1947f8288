package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router registers every status route.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	api.HandleFunc("/photos", h.GetPhotos).Methods(http.MethodGet)
	api.HandleFunc("/years", h.GetYears).Methods(http.MethodGet)
	api.HandleFunc("/jobs", h.GetJobs).Methods(http.MethodGet)

	return r
}
