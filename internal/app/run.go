package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/config"
	"postpipe-connector/internal/server"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// Run is the main entry point for the application
func Run() error {
	// Load environment variables
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logging.Error("Configuration validation failed", err)
		return err
	}

	closer, err := logging.InitGlobalLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logging.MustSync()

	logging.Info("Starting PostPipe connector",
		logging.Field{Key: "port", Value: cfg.Port},
		logging.Field{Key: "db_type", Value: cfg.DBType},
		logging.Field{Key: "connector_id", Value: cfg.ConnectorID},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	app.Warmup(ctx)

	srv := server.New(app.Handler(), cfg.Port, logging.Named("server"))
	if err := srv.Start(); err != nil {
		logging.Error("Server failed to start", err)
		_ = app.Close(context.Background())
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info("Shutting down server...")
	case serveErr = <-srv.Errors():
		logging.Error("Server stopped unexpectedly", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", err)
	}
	if err := app.Close(shutdownCtx); err != nil {
		logging.Warn("Error closing connections", logging.Err(err))
	}

	logging.Info("Server exited")
	return serveErr
}
