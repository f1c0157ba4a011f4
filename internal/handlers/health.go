package handlers

import (
	"net/http"
	"time"
)

// HealthCheck reports pool and Redis state and where routing config was
// loaded from. It answers 200 even when a dependency fails its ping.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":       "healthy",
		"connectorId":  h.connectorID,
		"configSource": h.currentSource(),
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}

	if h.pool != nil {
		resp["pool"] = h.pool.Stats()
		connections := h.pool.Health(r.Context())
		for _, status := range connections {
			if status != "ok" {
				resp["status"] = "degraded"
				break
			}
		}
		resp["connections"] = connections
	}

	if h.redis != nil {
		resp["redis"] = "ok"
		if err := h.redis.Health(r.Context()); err != nil {
			resp["redis"] = err.Error()
			resp["status"] = "degraded"
		}
	}

	h.sendJSON(w, http.StatusOK, resp)
}
