// Package apiserver implements the minimal chi-based health/readonly HTTP
// surface that stands in for the out-of-scope REST/WebSocket API (spec.md
// §1): liveness/readiness probes, Prometheus scraping, and a read-only
// alerts listing. It mirrors the teacher's router.NewRouter middleware
// chain (request ID → recover → request logger) narrowed to the routes
// this core actually owns.
package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/metrics"
	"github.com/riskpipe/supplychain/pkg/model"
	"github.com/riskpipe/supplychain/pkg/store"
)

// Pinger is satisfied by streambus.Bus; split out so readiness can be
// tested without a live Redis connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the HTTP handler: health endpoints, metrics, and the
// read-only alerts surface, backed by alertStore and bus.
func NewRouter(alertStore store.AlertStore, bus Pinger, m *metrics.Metrics, companyID string, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "riskpipe-api"})
	})

	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if err := bus.Ping(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/alerts", listAlerts(alertStore, companyID))
	})

	return r
}

// listAlertsResponse is the wire shape for GET /v1/alerts.
type listAlertsResponse struct {
	Alerts []model.Alert `json:"alerts"`
	Count  int           `json:"count"`
}

// listAlerts serves GET /v1/alerts?severity=high&limit=50 — the
// dashboard's read surface, narrowed to unacknowledged alerts since
// acknowledgement/aggregation workflows belong to the external API layer
// (spec.md §1 Non-goals).
func listAlerts(alertStore store.AlertStore, companyID string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		limit := 50
		if raw := req.URL.Query().Get("limit"); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				limit = v
			}
		}

		severity := model.Severity(req.URL.Query().Get("severity"))

		alerts, err := alertStore.ListUnacknowledged(req.Context(), companyID, severity, limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, listAlertsResponse{Alerts: alerts, Count: len(alerts)})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimw.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
