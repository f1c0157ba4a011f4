package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/metrics"
	"postpipe-connector/internal/models"
	"postpipe-connector/internal/signature"
)

func (h *Handlers) sendQueryError(w http.ResponseWriter, status int, message string) {
	metrics.RecordQuery(models.StatusError)
	h.sendJSON(w, status, models.QueryResponse{Status: models.StatusError, Message: message})
}

// HandleQuery returns the newest submissions of a form.
//
// Query parameters: formId (required), formName, limit, targetDatabase, and
// dbUri with dbName naming an injected connection. The connector secret is the bearer
// token; a missing header is 401 and a wrong token 403.
func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if err := signature.CheckBearer(r, h.secret); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, signature.ErrMissingToken) {
			status = http.StatusUnauthorized
		}
		h.sendQueryError(w, status, err.Error())
		return
	}

	q := r.URL.Query()
	formID := strings.TrimSpace(q.Get("formId"))
	if formID == "" {
		h.sendQueryError(w, http.StatusBadRequest, "formId is required")
		return
	}

	opts := models.QueryOptions{
		FormName:       strings.TrimSpace(q.Get("formName")),
		TargetDatabase: strings.TrimSpace(q.Get("targetDatabase")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.sendQueryError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = limit
	}
	if dbURI := strings.TrimSpace(q.Get("dbUri")); dbURI != "" {
		opts.DatabaseConfig = &models.DatabaseConfig{URI: dbURI, DBName: strings.TrimSpace(q.Get("dbName"))}
	}

	results, err := h.connector.Query(r.Context(), formID, opts)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithContext(r.Context()).Error("Failed to query submissions", err,
				logging.Field{Key: "form_id", Value: formID},
			)
		}
		h.sendQueryError(w, status, err.Error())
		return
	}

	if results == nil {
		results = []models.StoredSubmission{}
	}
	metrics.RecordQuery(models.StatusOK)
	h.sendJSON(w, http.StatusOK, models.QueryResponse{
		Status:      models.StatusOK,
		Count:       len(results),
		Submissions: results,
	})
}
