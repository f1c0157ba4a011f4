package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/metrics"
	"postpipe-connector/internal/models"
	"postpipe-connector/internal/signature"
)

// HandleIngest stores one form submission.
//
// 200 stored, 400 invalid payload, 401 bad signature, 422 no database
// resolved, 503 database unavailable.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := signature.PreserveRequestBody(r)
	if err != nil {
		metrics.RecordIngest(metrics.OutcomeInvalid)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendConnectorError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.sendConnectorError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if err := h.verifier.Verify(r, body); err != nil {
		metrics.RecordIngest(metrics.OutcomeUnauthorized)
		h.sendConnectorError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var payload models.IngestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.RecordIngest(metrics.OutcomeInvalid)
		h.sendConnectorError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := signature.ValidatePayloadIDs(&payload); err != nil {
		metrics.RecordIngest(metrics.OutcomeInvalid)
		h.sendConnectorError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.connector.Ingest(r.Context(), &payload)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.WithContext(r.Context()).Error("Failed to ingest submission", err,
				logging.Field{Key: "form_id", Value: payload.FormID},
				logging.Field{Key: "submission_id", Value: payload.SubmissionID},
			)
		}
		h.sendJSON(w, status, resp)
		return
	}
	h.sendJSON(w, http.StatusOK, resp)
}
