package app

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/config"
	"postpipe-connector/internal/connector"
	"postpipe-connector/internal/handlers"
	"postpipe-connector/internal/metrics"
	"postpipe-connector/internal/middleware"
	"postpipe-connector/internal/pool"
	"postpipe-connector/internal/redis"
	"postpipe-connector/internal/routes"
	"postpipe-connector/internal/routing"
	"postpipe-connector/internal/signature"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Logger      logging.Logger
	RedisClient *redis.Client
	RouteStore  *routes.RedisStore
	Routing     *routing.Holder
	Pool        *pool.Manager
	Connector   *connector.Connector
	Handlers    *handlers.Handlers
	RateLimiter *middleware.RateLimiter
	router      *mux.Router
}

// New wires the connector from cfg. Redis and the warm-up connection are
// optional: their failures are logged and the connector still starts.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logging.Named("app"),
	}

	if err := app.initializeRedis(); err != nil {
		app.Logger.Warn("Redis initialization failed, continuing without per-tenant routing",
			logging.Err(err))
	}

	app.initializeRouting(ctx)
	app.initializePool()

	app.Connector = connector.New(app.Routing, app.Pool, connector.Config{
		DefaultCollection: cfg.DefaultCollection,
		Logger:            logging.Named("connector"),
	})

	opts := handlers.Options{
		ConnectorID:  cfg.ConnectorID,
		Secret:       cfg.ConnectorSecret,
		Verifier:     signature.NewVerifier(signature.Config{Secret: cfg.ConnectorSecret}, logging.Named("signature")),
		Pool:         app.Pool,
		ConfigSource: app.ConfigSource,
		Reload:       app.reloadRouting,
		Logger:       logging.Named("handlers"),
	}
	if app.RedisClient != nil {
		opts.Routes = app.RouteStore
		opts.Redis = app.RedisClient
	}
	app.Handlers = handlers.New(app.Connector, opts)
	if cfg.ConnectorSecret == "" {
		app.Logger.Warn("POSTPIPE_CONNECTOR_SECRET is not set: ingest is unauthenticated and reads are disabled")
	}

	app.RateLimiter = middleware.NewRateLimiter(cfg.IngestRateLimit, cfg.IngestRateBurst, logging.Named("ratelimit"))

	app.router = mux.NewRouter()
	SetupRoutes(app.router, app.Handlers, app.RateLimiter, app.Config.ConnectorID)

	return app, nil
}

func (app *App) initializeRouting(ctx context.Context) {
	engine, source := app.loadRouting(ctx)
	app.Routing = routing.NewHolder(engine, source)
}

// loadRouting reads the routing document from the tenant store and the
// file candidates and builds an engine for it.
func (app *App) loadRouting(ctx context.Context) (*routing.Engine, string) {
	var sources []routes.Source
	if app.RouteStore != nil && app.Config.ConnectorID != "" {
		sources = append(sources, routes.TenantSource{Store: app.RouteStore, Tenant: app.Config.ConnectorID})
	}
	sources = append(sources, routes.FileSources(app.Config.RoutesConfigPath)...)

	cfg, source := routes.NewLoader(logging.Named("routes"), sources...).Load(ctx)
	if source == "" {
		source = "environment"
	}

	engine := routing.NewEngine(cfg, routing.Defaults{
		URI:    app.Config.DefaultURI,
		DBName: app.Config.DefaultDBName,
	}, logging.Named("routing"))
	return engine, source
}

// reloadRouting swaps in routing built from the current sources. Requests
// already resolving keep the previous engine.
func (app *App) reloadRouting(ctx context.Context) {
	engine, source := app.loadRouting(ctx)
	app.Routing.Store(engine, source)
	app.Logger.Info("Routing reloaded", logging.Field{Key: "source", Value: source})
}

// ConfigSource names where live routing was loaded from.
func (app *App) ConfigSource() string {
	return app.Routing.Source()
}

func (app *App) initializePool() {
	app.Pool = pool.NewManager(app.dialer(), pool.Config{
		ConnectTimeout: app.Config.ConnectTimeout,
		Logger:         logging.Named("pool"),
		OnDial:         metrics.RecordDial,
	})
	metrics.RegisterPoolSize(app.Pool.Len)
}

// Handler returns the routed, instrumented HTTP handler.
func (app *App) Handler() http.Handler {
	return metrics.InstrumentHandler(app.router)
}

// Warmup connects the default target. A failure is only logged; requests
// dial again on demand.
func (app *App) Warmup(ctx context.Context) {
	if err := app.Connector.Connect(ctx); err != nil {
		app.Logger.Warn("Default database connection not established at startup", logging.Err(err))
	}
}

// Close releases pooled connections and the Redis client.
func (app *App) Close(ctx context.Context) error {
	var errs []error
	if app.Connector != nil {
		if err := app.Connector.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
