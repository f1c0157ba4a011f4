// Package postgres stores submissions in PostgreSQL through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"postpipe-connector/internal/storage"
	"postpipe-connector/internal/storage/sqlstore"
)

// Config tunes the database/sql pool behind one client.
type Config struct {
	MaxOpenConns int
	MaxIdleConns int
}

func DefaultConfig() *Config {
	return &Config{MaxOpenConns: 10, MaxIdleConns: 5}
}

// Open connects to uri and prepares the submissions table.
func Open(ctx context.Context, uri string, config *Config) (*sqlstore.Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	return sqlstore.Open(ctx, db, sqlstore.Postgres)
}

type Factory struct {
	Config *Config
}

func (f *Factory) Create(ctx context.Context, uri string) (storage.Client, error) {
	return Open(ctx, uri, f.Config)
}

func (f *Factory) GetType() string {
	return "postgres"
}

func init() {
	storage.Register("postgres", &Factory{})
	storage.Register("postgresql", &Factory{})
}
