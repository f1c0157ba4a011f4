package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "postpipe-connector/internal/common/errors"
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/routes"
	"postpipe-connector/internal/signature"
)

// RouteStore keeps the connector's own routing document.
type RouteStore interface {
	GetOrDefault(ctx context.Context, tenant string) (*routes.RouteConfig, error)
	Save(ctx context.Context, tenant string, cfg *routes.RouteConfig) error
	Delete(ctx context.Context, tenant string) error
}

type routesResponse struct {
	Status       string              `json:"status"`
	Tenant       string              `json:"tenant,omitempty"`
	ConfigSource string              `json:"configSource,omitempty"`
	Config       *routes.RouteConfig `json:"config,omitempty"`
	Message      string              `json:"message,omitempty"`
}

func (h *Handlers) sendRoutesError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, routesResponse{Status: "error", Message: message})
}

// authorizeRoutes checks the bearer token and that a store and tenant exist.
func (h *Handlers) authorizeRoutes(w http.ResponseWriter, r *http.Request) bool {
	if err := signature.CheckBearer(r, h.secret); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, signature.ErrMissingToken) {
			status = http.StatusUnauthorized
		}
		h.sendRoutesError(w, status, err.Error())
		return false
	}
	if h.routes == nil {
		h.sendRoutesError(w, http.StatusNotFound, "routing store is not configured")
		return false
	}
	if h.connectorID == "" {
		h.sendRoutesError(w, http.StatusConflict, "POSTPIPE_CONNECTOR_ID is not set")
		return false
	}
	return true
}

// reloadRoutes applies a changed routing document to live routing.
func (h *Handlers) reloadRoutes(ctx context.Context) {
	if h.reload != nil {
		h.reload(ctx)
	}
}

// GetRoutes returns the stored routing document, or the default skeleton
// when none has been saved.
func (h *Handlers) GetRoutes(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeRoutes(w, r) {
		return
	}

	cfg, err := h.routes.GetOrDefault(r.Context(), h.connectorID)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to read routing config", err)
		h.sendRoutesError(w, http.StatusServiceUnavailable, "failed to read routing config")
		return
	}
	h.sendJSON(w, http.StatusOK, routesResponse{
		Status:       "ok",
		Tenant:       h.connectorID,
		ConfigSource: h.currentSource(),
		Config:       cfg,
	})
}

// PutRoutes validates and stores a routing document, then reloads routing.
func (h *Handlers) PutRoutes(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeRoutes(w, r) {
		return
	}

	var cfg routes.RouteConfig
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		h.sendRoutesError(w, http.StatusBadRequest, "invalid routing config: "+err.Error())
		return
	}

	if err := h.routes.Save(r.Context(), h.connectorID, &cfg); err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeValidation) {
			h.sendRoutesError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithContext(r.Context()).Error("Failed to save routing config", err)
		h.sendRoutesError(w, http.StatusServiceUnavailable, "failed to save routing config")
		return
	}

	h.reloadRoutes(r.Context())
	h.logger.WithContext(r.Context()).Info("Routing config saved",
		logging.Field{Key: "databases", Value: len(cfg.Databases)},
		logging.Field{Key: "rules", Value: len(cfg.Rules)},
	)
	h.sendJSON(w, http.StatusOK, routesResponse{
		Status:       "ok",
		Tenant:       h.connectorID,
		ConfigSource: h.currentSource(),
		Config:       &cfg,
	})
}

// DeleteRoutes removes the stored document; routing falls back to files or
// the environment.
func (h *Handlers) DeleteRoutes(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeRoutes(w, r) {
		return
	}

	if err := h.routes.Delete(r.Context(), h.connectorID); err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to delete routing config", err)
		h.sendRoutesError(w, http.StatusServiceUnavailable, "failed to delete routing config")
		return
	}

	h.reloadRoutes(r.Context())
	h.sendJSON(w, http.StatusOK, routesResponse{
		Status:       "ok",
		Tenant:       h.connectorID,
		ConfigSource: h.currentSource(),
	})
}
