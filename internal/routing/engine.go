package routing

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/models"
	"postpipe-connector/internal/routes"
)

// DynamicEnvPrefix is the prefix of per-alias connection variables.
const DynamicEnvPrefix = "MONGODB_URI_"

// DynamicDBPrefix is prepended to the alias to name its database.
const DynamicDBPrefix = "postpipe_"

// Tier names the precedence tier that produced a Target.
type Tier string

const (
	TierInjected       Tier = "injected"
	TierDynamicEnv     Tier = "dynamic_env"
	TierRule           Tier = "rule"
	TierConfigDefault  Tier = "config_default"
	TierProcessDefault Tier = "process_default"
)

// Target is a resolved literal connection.
type Target struct {
	URI    string
	DBName string
	Alias  string
	Tier   Tier
}

// Defaults are the process-wide fallback connection values.
type Defaults struct {
	URI    string
	DBName string
}

// RouteInput is what routing looks at. Document is the payload's JSON, used
// for rule evaluation; rules are skipped when it is nil.
type RouteInput struct {
	DatabaseConfig *models.DatabaseConfig
	TargetDatabase string
	Document       []byte
}

// InputFromPayload builds the routing input for an ingest payload. Rules see
// the decoded request document when there is one, else the encoded struct.
func InputFromPayload(payload *models.IngestPayload) (*RouteInput, error) {
	if payload == nil {
		return nil, nil
	}
	document := []byte(payload.Raw)
	if len(document) == 0 {
		var err error
		if document, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("failed to encode payload for routing: %w", err)
		}
	}
	return &RouteInput{
		DatabaseConfig: payload.DatabaseConfig,
		TargetDatabase: payload.TargetDatabase,
		Document:       document,
	}, nil
}

// InputFromQuery builds the routing input for a read. Queries carry no
// document, so rules never apply.
func InputFromQuery(opts models.QueryOptions) *RouteInput {
	return &RouteInput{
		DatabaseConfig: opts.DatabaseConfig,
		TargetDatabase: opts.TargetDatabase,
	}
}

// DynamicEnvKey returns the conventional variable for alias:
// uppercased, with '-', '.' and spaces replaced by '_'.
func DynamicEnvKey(alias string) string {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case '-', '.', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(alias))
	return DynamicEnvPrefix + strings.ToUpper(normalized)
}

// DynamicDBName returns the database name used for a dynamically routed alias.
func DynamicDBName(alias string) string {
	return DynamicDBPrefix + strings.ToLower(strings.TrimSpace(alias))
}

// Engine resolves targets. It is immutable and safe for concurrent use.
type Engine struct {
	config   *routes.RouteConfig
	rules    []CompiledRule
	defaults Defaults
	logger   logging.Logger
}

// NewEngine compiles cfg's rules. cfg may be nil for single-database mode.
func NewEngine(cfg *routes.RouteConfig, defaults Defaults, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Named("routing")
	}
	e := &Engine{config: cfg, defaults: defaults, logger: logger}
	if cfg != nil {
		e.rules = compileRules(cfg.Rules, logger)
	}
	return e
}

// Rules returns the rules that compiled, in evaluation order.
func (e *Engine) Rules() []CompiledRule {
	return e.rules
}

// Resolve returns the target for in. A nil input resolves the default target
// and is used for warm-up.
func (e *Engine) Resolve(in *RouteInput) (Target, error) {
	if in != nil && in.DatabaseConfig != nil {
		return e.resolveInjected(in.DatabaseConfig)
	}

	var requested string
	if in != nil {
		requested = strings.TrimSpace(in.TargetDatabase)
	}

	if requested != "" {
		key := DynamicEnvKey(requested)
		if uri := os.Getenv(key); uri != "" {
			e.logger.Debug("Routing by environment convention",
				logging.Field{Key: "target", Value: requested},
				logging.Field{Key: "variable", Value: key},
			)
			return Target{URI: uri, DBName: DynamicDBName(requested), Alias: requested, Tier: TierDynamicEnv}, nil
		}
		e.logger.Warn("Requested target has no environment variable",
			logging.Field{Key: "target", Value: requested},
			logging.Field{Key: "variable", Value: key},
		)
	}

	if e.config == nil {
		return e.processDefault(routes.DefaultAlias)
	}

	alias, tier := e.config.DefaultAlias(), TierConfigDefault
	if in != nil && in.Document != nil {
		if rule, value, ok := firstMatch(e.rules, in.Document); ok {
			e.logger.Debug("Routing rule matched",
				logging.Field{Key: "rule", Value: rule.Index},
				logging.Field{Key: "field", Value: rule.Rule.Field},
				logging.Field{Key: "value", Value: value},
				logging.Field{Key: "target", Value: rule.Rule.Target},
			)
			alias, tier = rule.Rule.Target, TierRule
		}
	}
	if _, ok := e.config.Lookup(requested); ok {
		alias, tier = requested, TierConfigDefault
	}

	entry, ok := e.config.Lookup(alias)
	if !ok {
		return e.processDefault(alias)
	}

	target := Target{
		URI:    routes.ResolveValue(entry.URI),
		DBName: routes.ResolveValue(entry.DBName),
		Alias:  alias,
		Tier:   tier,
	}
	if target.URI == "" {
		target.URI = e.defaults.URI
	}
	if target.DBName == "" {
		target.DBName = e.defaults.DBName
	}
	if target.URI == "" {
		return Target{}, errNoURI(alias, tier)
	}
	return target, nil
}

func (e *Engine) resolveInjected(dc *models.DatabaseConfig) (Target, error) {
	name := dc.EnvVarName()
	if name == "" {
		return Target{}, errInjectedEnvMissing()
	}

	uri := os.Getenv(name)
	if uri == "" {
		e.logger.Warn("Injected database config variable is not set", logging.Field{Key: "variable", Value: name})
		return Target{}, errInjectedEnvUnset(name)
	}

	dbName := strings.TrimSpace(dc.DBName)
	if dbName == "" {
		dbName = e.defaults.DBName
	}
	e.logger.Debug("Routing by injected config", logging.Field{Key: "variable", Value: name})
	return Target{URI: uri, DBName: dbName, Alias: name, Tier: TierInjected}, nil
}

func (e *Engine) processDefault(alias string) (Target, error) {
	if e.defaults.URI == "" {
		return Target{}, errNoURI(alias, TierProcessDefault)
	}
	return Target{URI: e.defaults.URI, DBName: e.defaults.DBName, Alias: alias, Tier: TierProcessDefault}, nil
}
