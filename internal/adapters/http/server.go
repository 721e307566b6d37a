// Package http exposes a read-only monitor for a running session: the
// dispatcher status as JSON and the Prometheus metrics. The state machine
// core itself has no network surface; this handler is wired up only by
// the CLI runner.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openrig/trialctl/pkg/dispatcher"
)

// StatusSource provides the session snapshot served at /status.
type StatusSource interface {
	Status() dispatcher.Status
}

// NewHandler builds the monitor router.
func NewHandler(src StatusSource, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(src.Status()); err != nil {
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return r
}
