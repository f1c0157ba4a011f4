// Package config provides configuration management for the PostPipe connector.
// It loads process configuration from environment variables with sensible
// defaults and validates it so the connector starts in a known state.
//
// Routing configuration (which database a submission lands in) is not part of
// this package; see internal/routes. This package only carries the process-wide
// fallbacks the routing engine ends at.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 3000)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FORMAT: "console" or "json" (default: console)
//   - LOG_FILE: Write logs to this file instead of stdout
//
// Storage Configuration:
//   - DB_TYPE: "auto" dispatches by URI scheme, "memory" forces the in-process dry-run store (default: auto)
//   - MONGODB_URI: Process default connection string
//   - MONGODB_DB_NAME: Process default database name (default: postpipe)
//   - MONGODB_COLLECTION: Process default collection (default: submissions)
//   - MONGODB_URI_<ALIAS>: Per-alias connection strings, read at routing time
//   - CONNECT_TIMEOUT: Bound on a single client dial (default: 10s)
//
// Routing Configuration:
//   - ROUTES_CONFIG_PATH: Explicit routing file, tried before the default candidates
//
// Connector Identity:
//   - POSTPIPE_CONNECTOR_ID: Connector id shared with the dashboard
//   - POSTPIPE_CONNECTOR_SECRET: Shared secret for ingest signatures and query bearer auth
//
// Redis Configuration (optional, per-tenant routing store):
//   - REDIS_ADDRESS: Redis server address; empty disables the tenant store
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//
// Rate Limiting:
//   - INGEST_RATE_LIMIT: Ingest requests per second, 0 disables (default: 0)
//   - INGEST_RATE_BURST: Ingest burst size (default: 20)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DBTypeAuto selects a storage backend from each URI's scheme
	DBTypeAuto = "auto"
	// DBTypeMemory routes every URI to the in-process store
	DBTypeMemory = "memory"
)

// Config holds the process configuration of the connector.
//
// The configuration is loaded using Load() and should be validated using
// Validate() before use.
type Config struct {
	// Application settings
	Port      string // Server port number
	LogLevel  string // Logging level (debug, info, warn, error)
	LogFormat string // Log encoder (console, json)
	LogFile   string // Optional log file path

	// Storage defaults, the last tier of routing
	DBType            string        // auto or memory
	DefaultURI        string        // MONGODB_URI
	DefaultDBName     string        // MONGODB_DB_NAME
	DefaultCollection string        // MONGODB_COLLECTION
	ConnectTimeout    time.Duration // Bound on one client dial

	// Routing
	RoutesConfigPath string // Explicit routing config file

	// Connector identity
	ConnectorID     string
	ConnectorSecret string

	// Redis configuration for the per-tenant routing store
	RedisAddress  string
	RedisPassword string
	RedisDB       string

	// Ingest rate limiting
	IngestRateLimit float64 // Requests per second, 0 disables
	IngestRateBurst int
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration. Call Validate() on the
// returned Config to ensure all values are usable.
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "3000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
		LogFile:   getEnv("LOG_FILE", ""),

		DBType:            strings.ToLower(getEnv("DB_TYPE", DBTypeAuto)),
		DefaultURI:        getEnv("MONGODB_URI", ""),
		DefaultDBName:     getEnv("MONGODB_DB_NAME", "postpipe"),
		DefaultCollection: getEnv("MONGODB_COLLECTION", "submissions"),
		ConnectTimeout:    getDurationEnv("CONNECT_TIMEOUT", 10*time.Second),

		RoutesConfigPath: getEnv("ROUTES_CONFIG_PATH", ""),

		ConnectorID:     getEnv("POSTPIPE_CONNECTOR_ID", ""),
		ConnectorSecret: getEnv("POSTPIPE_CONNECTOR_SECRET", ""),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		IngestRateLimit: getFloatEnv("INGEST_RATE_LIMIT", 0),
		IngestRateBurst: getIntEnv("INGEST_RATE_BURST", 20),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("15s") and bare seconds ("15").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// RedisEnabled reports whether the per-tenant routing store should be used.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

// RedisDBNumber returns REDIS_DB as an int. Call after Validate.
func (c *Config) RedisDBNumber() int {
	db, _ := strconv.Atoi(c.RedisDB)
	return db
}

// Validate checks that every value is usable.
//
// A missing MONGODB_URI is not an error: the connector can run entirely on
// per-alias variables or a routing file, and an unresolvable request is
// reported as a routing error at request time.
//
// Returns:
//   - error: A descriptive error if validation fails, nil if configuration is valid
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.DBType {
	case DBTypeAuto, DBTypeMemory:
	default:
		return fmt.Errorf("DB_TYPE must be '%s' or '%s'", DBTypeAuto, DBTypeMemory)
	}

	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'console' or 'json'")
	}

	if c.DefaultDBName == "" {
		return fmt.Errorf("MONGODB_DB_NAME must not be empty")
	}
	if c.DefaultCollection == "" {
		return fmt.Errorf("MONGODB_COLLECTION must not be empty")
	}

	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("CONNECT_TIMEOUT must be a positive duration")
	}

	if c.RedisEnabled() {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
	}

	if c.IngestRateLimit < 0 {
		return fmt.Errorf("INGEST_RATE_LIMIT must not be negative")
	}
	if c.IngestRateLimit > 0 && c.IngestRateBurst < 1 {
		return fmt.Errorf("INGEST_RATE_BURST must be a positive number when rate limiting is enabled")
	}

	return nil
}
