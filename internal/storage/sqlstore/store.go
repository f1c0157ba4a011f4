// Package sqlstore implements storage.Client on database/sql.
//
// Every logical database and collection shares one table, partitioned by the
// db_name and collection columns. The submission is kept whole as a JSON
// document; the other columns exist for lookup and ordering.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"postpipe-connector/internal/models"
	"postpipe-connector/internal/storage"
)

// Table is the submissions table name.
const Table = "postpipe_submissions"

// Dialect describes the SQL differences between backends.
type Dialect struct {
	Name string
	// Migrations run in order when a store is opened.
	Migrations []string
	// Placeholder returns the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// Postgres numbers its parameters.
var Postgres = Dialect{
	Name: "postgres",
	Migrations: []string{
		`CREATE TABLE IF NOT EXISTS ` + Table + ` (
			id BIGSERIAL PRIMARY KEY,
			db_name TEXT NOT NULL,
			collection TEXT NOT NULL,
			submission_id TEXT NOT NULL,
			form_id TEXT NOT NULL,
			form_name TEXT NOT NULL DEFAULT '',
			document JSONB NOT NULL,
			received_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + Table + `_lookup ON ` + Table + ` (db_name, collection, received_at DESC)`,
	},
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
}

// SQLite uses positional question marks.
var SQLite = Dialect{
	Name: "sqlite",
	Migrations: []string{
		`CREATE TABLE IF NOT EXISTS ` + Table + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			db_name TEXT NOT NULL,
			collection TEXT NOT NULL,
			submission_id TEXT NOT NULL,
			form_id TEXT NOT NULL,
			form_name TEXT NOT NULL DEFAULT '',
			document TEXT NOT NULL,
			received_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_` + Table + `_lookup ON ` + Table + ` (db_name, collection, received_at DESC)`,
	},
	Placeholder: func(int) string { return "?" },
}

func (d Dialect) insertQuery() string {
	params := make([]string, 7)
	for i := range params {
		params[i] = d.Placeholder(i + 1)
	}
	return `INSERT INTO ` + Table + ` (db_name, collection, submission_id, form_id, form_name, document, received_at) VALUES (` +
		strings.Join(params, ", ") + `)`
}

func (d Dialect) findQuery() string {
	return `SELECT document FROM ` + Table + ` WHERE db_name = ` + d.Placeholder(1) +
		` AND collection = ` + d.Placeholder(2) +
		` ORDER BY received_at DESC, id DESC LIMIT ` + d.Placeholder(3)
}

// Store is a storage.Client over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	closed  atomic.Bool
}

// Open wraps db and runs the dialect's migrations. db is closed if they fail.
func Open(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, query := range s.dialect.Migrations {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, db, collection string, doc *models.StoredSubmission) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	document, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.dialect.insertQuery(),
		db, collection, doc.SubmissionID, doc.FormID, doc.FormName, string(document), doc.ReceivedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, db, collection string, limit int) ([]models.StoredSubmission, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.findQuery(), db, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	results := []models.StoredSubmission{}
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		var doc models.StoredSubmission
		if err := json.Unmarshal(document, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode submission: %w", err)
		}
		results = append(results, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}
	return results, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}
	return s.db.PingContext(ctx)
}

func (s *Store) Close(context.Context) error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}
