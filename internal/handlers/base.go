package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	apperrors "postpipe-connector/internal/common/errors"
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/models"
	"postpipe-connector/internal/pool"
	"postpipe-connector/internal/signature"
)

// MaxBodyBytes bounds an ingest request body.
const MaxBodyBytes = 1 << 20

// Connector is the ingest/query surface the handlers drive.
type Connector interface {
	Ingest(ctx context.Context, payload *models.IngestPayload) (models.ConnectorResponse, error)
	Query(ctx context.Context, formID string, opts models.QueryOptions) ([]models.StoredSubmission, error)
}

// PoolInspector reports on pooled connections for /health.
type PoolInspector interface {
	Stats() pool.Stats
	Health(ctx context.Context) map[string]string
}

// HealthChecker is a dependency /health pings, such as Redis.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type Options struct {
	ConnectorID string
	// Secret authenticates reads; it is also the signing secret of Verifier.
	Secret   string
	Verifier *signature.Verifier
	Pool     PoolInspector
	// ConfigSource reports where live routing was loaded from.
	ConfigSource func() string
	// Routes enables /postpipe/routes when set.
	Routes RouteStore
	// Reload rebuilds routing after the stored document changes.
	Reload func(ctx context.Context)
	Redis  HealthChecker
	Logger logging.Logger
}

type Handlers struct {
	connector    Connector
	verifier     *signature.Verifier
	pool         PoolInspector
	routes       RouteStore
	reload       func(ctx context.Context)
	redis        HealthChecker
	connectorID  string
	secret       string
	configSource func() string
	logger       logging.Logger
}

func New(connector Connector, opts Options) *Handlers {
	if opts.Verifier == nil {
		opts.Verifier = signature.NewVerifier(signature.Config{Secret: opts.Secret}, opts.Logger)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Named("handlers")
	}
	return &Handlers{
		connector:    connector,
		verifier:     opts.Verifier,
		pool:         opts.Pool,
		routes:       opts.Routes,
		reload:       opts.Reload,
		redis:        opts.Redis,
		connectorID:  opts.ConnectorID,
		secret:       opts.Secret,
		configSource: opts.ConfigSource,
		logger:       opts.Logger,
	}
}

func (h *Handlers) currentSource() string {
	if h.configSource == nil {
		return ""
	}
	return h.configSource()
}

func (h *Handlers) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

func (h *Handlers) sendConnectorError(w http.ResponseWriter, status int, message string) {
	h.sendJSON(w, status, models.ConnectorResponse{Status: models.StatusError, Message: message})
}

// statusFor maps an error to the HTTP status the dashboard expects.
func statusFor(err error) int {
	switch apperrors.GetType(err) {
	case apperrors.ErrTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrTypeAuth:
		return http.StatusUnauthorized
	case apperrors.ErrTypeRouting:
		return http.StatusUnprocessableEntity
	case apperrors.ErrTypeStorage:
		return http.StatusServiceUnavailable
	case apperrors.ErrTypeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
