// Package sqlite stores submissions in a local SQLite file.
//
// Accepted URIs:
//
//	sqlite://./data/postpipe.db   relative path
//	sqlite:///var/lib/postpipe.db absolute path
//	sqlite://:memory:             private in-memory database
//	file:postpipe.db?cache=shared passed to the driver unchanged
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"postpipe-connector/internal/storage"
	"postpipe-connector/internal/storage/sqlstore"
)

// DataSource converts a connection URI to a go-sqlite3 data source name.
func DataSource(uri string) (string, error) {
	if strings.HasPrefix(strings.ToLower(uri), "file:") {
		return uri, nil
	}

	path, ok := cutPrefixFold(uri, "sqlite://")
	if !ok {
		path, ok = cutPrefixFold(uri, "sqlite:")
	}
	if !ok {
		return "", fmt.Errorf("not a sqlite URI")
	}
	if path == "" {
		return "", fmt.Errorf("database path is required")
	}
	return path, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// Open opens the database at uri and prepares the submissions table.
func Open(ctx context.Context, uri string) (*sqlstore.Store, error) {
	dsn, err := DataSource(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	return sqlstore.Open(ctx, db, sqlstore.SQLite)
}

type Factory struct{}

func (f *Factory) Create(ctx context.Context, uri string) (storage.Client, error) {
	return Open(ctx, uri)
}

func (f *Factory) GetType() string {
	return "sqlite"
}

func init() {
	storage.Register("sqlite", &Factory{})
	storage.Register("file", &Factory{})
}
