package logging

import (
	"context"
	"fmt"
	"io"
	"os"
)

// NewDefaultLogger creates an info level console logger on stdout
func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Format: FormatConsole})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// InitGlobalLogger replaces the global logger. An empty file logs to stdout.
// The returned closer releases the log file, if one was opened.
func InitGlobalLogger(level, format, file string) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", file, err)
		}
		out = f
		closer = f
	}

	logger, err := NewZapLogger(LogConfig{
		Level:  ParseLevel(level),
		Format: ParseFormat(format),
		Output: out,
	})
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	SetGlobalLogger(logger)
	logger.Info("Logger initialized",
		Field{"level", ParseLevel(level).String()},
		Field{"format", string(ParseFormat(format))},
	)
	return closer, nil
}

// MustSync flushes any buffered log entries for zap loggers
func MustSync() {
	if zapLogger, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}

// Named returns the global logger tagged with a component field
func Named(component string) Logger {
	return GetGlobalLogger().WithFields(Field{"component", component})
}

// Err creates an error field with key "error"
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// nopLogger discards everything. Tests use it to keep output quiet.
type nopLogger struct{}

// NewNopLogger returns a Logger that discards all entries
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field)               {}
func (nopLogger) Info(string, ...Field)                {}
func (nopLogger) Warn(string, ...Field)                {}
func (nopLogger) Error(string, error, ...Field)        {}
func (n nopLogger) WithFields(...Field) Logger         { return n }
func (n nopLogger) WithContext(context.Context) Logger { return n }
