package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/handlers"
	"postpipe-connector/internal/metrics"
	"postpipe-connector/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the connector
func SetupRoutes(router *mux.Router, h *handlers.Handlers, limiter *middleware.RateLimiter, connectorID string) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Tenant(connectorID))
	router.Use(middleware.Logging(logging.Named("http")))

	// Health and metrics (no auth required)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/postpipe").Subrouter()

	ingest := http.Handler(http.HandlerFunc(h.HandleIngest))
	if limiter != nil {
		ingest = limiter.Handler(ingest)
	}
	api.Handle("/ingest", ingest).Methods(http.MethodPost)
	api.HandleFunc("/data", h.HandleQuery).Methods(http.MethodGet)

	// Per-tenant routing document (bearer auth)
	api.HandleFunc("/routes", h.GetRoutes).Methods(http.MethodGet)
	api.HandleFunc("/routes", h.PutRoutes).Methods(http.MethodPut)
	api.HandleFunc("/routes", h.DeleteRoutes).Methods(http.MethodDelete)
}
