package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dandantas/linkpatrol/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	triggerHandler *TriggerHandler
	historyHandler *HistoryHandler
	healthHandler  *HealthHandler
	gatherer       prometheus.Gatherer
	secret         string
}

// NewRouter creates a new router. historyHandler and gatherer may be nil.
func NewRouter(
	triggerHandler *TriggerHandler,
	historyHandler *HistoryHandler,
	healthHandler *HealthHandler,
	gatherer prometheus.Gatherer,
	secret string,
) *Router {
	return &Router{
		triggerHandler: triggerHandler,
		historyHandler: historyHandler,
		healthHandler:  healthHandler,
		gatherer:       gatherer,
		secret:         secret,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	auth := middleware.BearerAuth(rt.secret)

	// Unauthenticated endpoints
	mux.HandleFunc("/health", rt.healthHandler.Health)
	mux.HandleFunc("/ready", rt.healthHandler.Ready)
	if rt.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	// Authenticated endpoints
	mux.Handle("/api/v1/cron/link-check", auth(http.HandlerFunc(rt.triggerHandler.Trigger)))
	if rt.historyHandler != nil {
		mux.Handle("/api/v1/checks", auth(http.HandlerFunc(rt.historyHandler.List)))
		mux.Handle("/api/v1/checks/", auth(http.HandlerFunc(rt.historyHandler.Get)))
	}

	handler := middleware.Recovery(mux)
	handler = middleware.Logging(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}
