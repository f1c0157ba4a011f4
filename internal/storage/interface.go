// Package storage defines the database client contract the connection pool
// hands out, and a registry that dials clients by URI scheme.
package storage

import (
	"context"
	"errors"

	"postpipe-connector/internal/models"
)

// ErrClosed is returned by a client used after Close.
var ErrClosed = errors.New("storage client is closed")

// Client is one live connection to a database server. A single client serves
// every logical database and collection on that server. Clients are owned by
// the pool; callers must not close them.
type Client interface {
	// Insert writes doc into collection of database db.
	Insert(ctx context.Context, db, collection string, doc *models.StoredSubmission) error
	// Find returns up to limit documents of collection in db, newest receipt first.
	Find(ctx context.Context, db, collection string, limit int) ([]models.StoredSubmission, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Factory creates clients for the URI schemes it is registered under.
type Factory interface {
	Create(ctx context.Context, uri string) (Client, error)
	GetType() string
}

// Dialer opens a client for a literal connection URI.
type Dialer interface {
	Dial(ctx context.Context, uri string) (Client, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, uri string) (Client, error)

func (f DialerFunc) Dial(ctx context.Context, uri string) (Client, error) {
	return f(ctx, uri)
}
