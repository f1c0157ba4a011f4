// Package connector performs ingest and query operations against the
// database routing selects. It holds no state of its own between calls:
// connections live in the pool and routing configuration in the engine.
// Nothing here retries; a storage error is returned for the caller to retry.
package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "postpipe-connector/internal/common/errors"
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/metrics"
	"postpipe-connector/internal/models"
	"postpipe-connector/internal/routing"
	"postpipe-connector/internal/storage"
)

// DefaultCollection is used when neither formName nor formId is set and no
// collection is configured.
const DefaultCollection = "submissions"

// Resolver picks a target for a routing input.
type Resolver interface {
	Resolve(in *routing.RouteInput) (routing.Target, error)
}

// Pool hands out shared clients.
type Pool interface {
	Get(ctx context.Context, uri string) (storage.Client, error)
	CloseAll(ctx context.Context) error
}

type Config struct {
	DefaultCollection string
	Logger            logging.Logger
	// Now stamps receipts; time.Now when nil.
	Now func() time.Time
}

type Connector struct {
	resolver          Resolver
	pool              Pool
	defaultCollection string
	logger            logging.Logger
	now               func() time.Time
}

func New(resolver Resolver, pool Pool, config Config) *Connector {
	if config.DefaultCollection == "" {
		config.DefaultCollection = DefaultCollection
	}
	if config.Logger == nil {
		config.Logger = logging.Named("connector")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Connector{
		resolver:          resolver,
		pool:              pool,
		defaultCollection: config.DefaultCollection,
		logger:            config.Logger,
		now:               config.Now,
	}
}

// CollectionFor returns formName, else formId, else fallback.
func CollectionFor(payload *models.IngestPayload, fallback string) string {
	if name := strings.TrimSpace(payload.FormName); name != "" {
		return name
	}
	if id := strings.TrimSpace(payload.FormID); id != "" {
		return id
	}
	return fallback
}

func (c *Connector) resolve(in *routing.RouteInput) (routing.Target, error) {
	target, err := c.resolver.Resolve(in)
	if err != nil {
		return routing.Target{}, err
	}
	metrics.RecordResolution(string(target.Tier))
	return target, nil
}

// client returns the pooled client for target. Errors are storage errors.
func (c *Connector) client(ctx context.Context, target routing.Target) (storage.Client, error) {
	client, err := c.pool.Get(ctx, target.URI)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrTypeStorage) {
			return nil, err
		}
		return nil, apperrors.StorageError("failed to obtain database connection", err)
	}
	return client, nil
}

// Insert routes payload, then writes it with a receipt timestamp. A routing
// failure is a routing error; a connect or write failure is a storage error.
func (c *Connector) Insert(ctx context.Context, payload *models.IngestPayload) error {
	if payload == nil {
		return apperrors.ValidationError("payload is required")
	}

	in, err := routing.InputFromPayload(payload)
	if err != nil {
		return apperrors.ValidationError(err.Error())
	}

	target, err := c.resolve(in)
	if err != nil {
		c.logger.WithContext(ctx).Warn("No database resolved for submission",
			logging.Field{Key: "submission_id", Value: payload.SubmissionID},
			logging.Field{Key: "target", Value: payload.TargetDatabase},
			logging.Err(err),
		)
		return err
	}

	client, err := c.client(ctx, target)
	if err != nil {
		return err
	}

	collection := CollectionFor(payload, c.defaultCollection)
	doc := models.NewStoredSubmission(payload, c.now())
	if err := client.Insert(ctx, target.DBName, collection, doc); err != nil {
		return apperrors.StorageError("failed to store submission", err).
			WithContext("db", target.DBName).
			WithContext("collection", collection)
	}

	c.logger.WithContext(ctx).Info("Saved submission",
		logging.Field{Key: "db", Value: target.DBName},
		logging.Field{Key: "collection", Value: collection},
		logging.Field{Key: "tier", Value: string(target.Tier)},
		logging.Field{Key: "submission_id", Value: payload.SubmissionID},
	)
	return nil
}

// Query returns the newest submissions of formID, at most opts.Limit (50 by
// default). The collection is chosen as Insert chooses it, so submissions
// stored under a form name are read with opts.FormName. Unresolved routing
// is an error, never an empty result.
func (c *Connector) Query(ctx context.Context, formID string, opts models.QueryOptions) ([]models.StoredSubmission, error) {
	formID = strings.TrimSpace(formID)
	if formID == "" {
		return nil, apperrors.ValidationError("formId is required")
	}

	target, err := c.resolve(routing.InputFromQuery(opts))
	if err != nil {
		c.logger.WithContext(ctx).Warn("No database resolved for query",
			logging.Field{Key: "form_id", Value: formID},
			logging.Field{Key: "target", Value: opts.TargetDatabase},
			logging.Err(err),
		)
		return nil, err
	}

	client, err := c.client(ctx, target)
	if err != nil {
		return nil, err
	}

	collection := CollectionFor(&models.IngestPayload{FormID: formID, FormName: opts.FormName}, c.defaultCollection)
	results, err := client.Find(ctx, target.DBName, collection, opts.EffectiveLimit())
	if err != nil {
		return nil, apperrors.StorageError("failed to query submissions", err).
			WithContext("db", target.DBName).
			WithContext("collection", collection)
	}
	return results, nil
}

// Connect warms up the pool with the default target. A failure leaves the
// connector usable; later requests dial again.
func (c *Connector) Connect(ctx context.Context) error {
	target, err := c.resolve(nil)
	if err != nil {
		return fmt.Errorf("default target unresolved: %w", err)
	}
	if _, err := c.client(ctx, target); err != nil {
		return err
	}
	c.logger.Info("Default database connection ready",
		logging.Field{Key: "db", Value: target.DBName},
		logging.Field{Key: "tier", Value: string(target.Tier)},
	)
	return nil
}

// Disconnect closes every pooled connection.
func (c *Connector) Disconnect(ctx context.Context) error {
	return c.pool.CloseAll(ctx)
}

// Ingest runs Insert and describes the outcome for the dashboard. The error
// is returned as well so transports can choose a status code.
func (c *Connector) Ingest(ctx context.Context, payload *models.IngestPayload) (models.ConnectorResponse, error) {
	err := c.Insert(ctx, payload)
	switch {
	case err == nil:
		metrics.RecordIngest(metrics.OutcomeStored)
		return models.ConnectorResponse{Status: models.StatusOK, Stored: true}, nil
	case apperrors.IsType(err, apperrors.ErrTypeRouting):
		metrics.RecordIngest(metrics.OutcomeRoutingError)
		return models.ConnectorResponse{
			Status:  models.StatusError,
			Message: "routing could not be resolved: " + err.Error(),
		}, err
	case apperrors.IsType(err, apperrors.ErrTypeStorage):
		metrics.RecordIngest(metrics.OutcomeStorageError)
		return models.ConnectorResponse{
			Status:  models.StatusError,
			Message: "storage operation failed: " + err.Error(),
		}, err
	default:
		metrics.RecordIngest(metrics.OutcomeInvalid)
		return models.ConnectorResponse{Status: models.StatusError, Message: err.Error()}, err
	}
}
