// Package logging is the connector's structured logger, backed by zap.
package logging

import (
	"context"
	"io"
	"strings"
	"sync"
)

// LogLevel orders log severities from Debug to Error.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[LogLevel]string{
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps LOG_LEVEL values to a LogLevel. Unknown values give InfoLevel.
func ParseLevel(s string) LogLevel {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return WarnLevel
	}
	for level, name := range levelNames {
		if name == s {
			return level
		}
	}
	return InfoLevel
}

// Field is one structured key/value attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is implemented by ZapAdapter and the no-op logger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
	WithFields(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// Format selects the zap encoder.
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ParseFormat maps LOG_FORMAT values to a Format. Anything but "json" is console.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatConsole
}

// LogConfig configures NewZapLogger.
type LogConfig struct {
	Level  LogLevel
	Format Format
	// Output defaults to stdout.
	Output io.Writer
	// Component names the logger, e.g. "pool" or "routing".
	Component string
}

type contextKey string

const (
	// RequestIDKey holds the id set by the request id middleware.
	RequestIDKey contextKey = "request_id"
	// TenantKey holds the connector id.
	TenantKey contextKey = "tenant"
)

var (
	globalMu     sync.RWMutex
	globalLogger Logger
)

// SetGlobalLogger replaces the process logger.
func SetGlobalLogger(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// GetGlobalLogger returns the process logger, creating a default one on first use.
func GetGlobalLogger() Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewDefaultLogger()
	}
	return globalLogger
}

// Info logs through the process logger.
func Info(msg string, fields ...Field) {
	GetGlobalLogger().Info(msg, fields...)
}

// Warn logs through the process logger.
func Warn(msg string, fields ...Field) {
	GetGlobalLogger().Warn(msg, fields...)
}

// Error logs through the process logger.
func Error(msg string, err error, fields ...Field) {
	GetGlobalLogger().Error(msg, err, fields...)
}
