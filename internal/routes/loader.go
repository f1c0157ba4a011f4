package routes

import (
	"context"
	"errors"

	"postpipe-connector/internal/common/logging"
)

// Loader walks its sources in order and keeps the first usable document.
type Loader struct {
	sources []Source
	logger  logging.Logger
}

func NewLoader(logger logging.Logger, sources ...Source) *Loader {
	if logger == nil {
		logger = logging.Named("routes")
	}
	return &Loader{sources: sources, logger: logger}
}

// Load returns the first source's document that exists and decodes, with that
// source's name. A source that exists but fails to decode is logged and
// skipped. Nil is returned when no source yields a document; that is not an
// error.
func (l *Loader) Load(ctx context.Context) (*RouteConfig, string) {
	for _, source := range l.sources {
		cfg, err := source.Load(ctx)
		if errors.Is(err, ErrConfigNotFound) {
			l.logger.Debug("Routing config source not present", logging.Field{Key: "source", Value: source.Name()})
			continue
		}
		if err != nil {
			l.logger.Error("Failed to load routing config, skipping source", err,
				logging.Field{Key: "source", Value: source.Name()},
			)
			continue
		}

		if problems := cfg.Validate(); problems != nil {
			l.logger.Warn("Routing config has problems",
				logging.Field{Key: "source", Value: source.Name()},
				logging.Err(problems),
			)
		}

		l.logger.Info("Loaded routing config",
			logging.Field{Key: "source", Value: source.Name()},
			logging.Field{Key: "databases", Value: len(cfg.Databases)},
			logging.Field{Key: "rules", Value: len(cfg.Rules)},
		)
		return cfg, source.Name()
	}

	l.logger.Warn("No routing config found, using single-database mode")
	return nil, ""
}
