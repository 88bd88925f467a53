// Package api exposes the query, health and metrics endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ragsql/ragsql/internal/rag"
)

// Service is the orchestrator surface the HTTP layer consumes.
type Service interface {
	Answer(ctx context.Context, req rag.QueryRequest) rag.QueryResponse
	Health(ctx context.Context) rag.HealthReport
}

// healthProbeTimeout bounds dependency probes per health request.
const healthProbeTimeout = 3 * time.Second

// NewRouter builds the HTTP mux. metricsHandler is mounted at /metrics
// when non-nil.
func NewRouter(svc Service, metricsHandler http.Handler, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/query", newQueryHandler(svc, logger))
	mux.HandleFunc("/health", newHealthHandler(svc))
	mux.HandleFunc("/", newLandingHandler())
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	return mux
}

// newQueryHandler serves POST /query. The response body is always a
// well-formed QueryResponse; agent and retrieval failures surface in its
// error field, not as transport errors.
func newQueryHandler(svc Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req rag.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		logger.Info("received query", "question", req.NaturalLanguageQuery)
		resp := svc.Answer(r.Context(), req)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Warn("failed to encode query response", "error", err)
		}
	}
}

// newHealthHandler serves GET /health. Dependencies are probed on every
// request; a degraded or failing report returns 503.
func newHealthHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
		defer cancel()

		report := svc.Health(ctx)

		w.Header().Set("Content-Type", "application/json")
		if report.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}
