// Package memory is an in-process storage backend for dry runs and tests.
// Nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"postpipe-connector/internal/models"
	"postpipe-connector/internal/storage"
)

type Client struct {
	mu          sync.RWMutex
	collections map[string][]models.StoredSubmission
	closed      bool
}

func NewClient() *Client {
	return &Client{collections: make(map[string][]models.StoredSubmission)}
}

func key(db, collection string) string {
	return db + "\x00" + collection
}

func (c *Client) Insert(_ context.Context, db, collection string, doc *models.StoredSubmission) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return storage.ErrClosed
	}
	k := key(db, collection)
	c.collections[k] = append(c.collections[k], *doc)
	return nil
}

// Find returns copies, newest receipt first; ties go to the later insert.
func (c *Client) Find(_ context.Context, db, collection string, limit int) ([]models.StoredSubmission, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, storage.ErrClosed
	}

	stored := c.collections[key(db, collection)]
	results := make([]models.StoredSubmission, len(stored))
	for i := range stored {
		results[len(stored)-1-i] = stored[i]
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ReceivedAt.After(results[j].ReceivedAt)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of documents in collection.
func (c *Client) Count(db, collection string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.collections[key(db, collection)])
}

func (c *Client) Ping(context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return storage.ErrClosed
	}
	return nil
}

func (c *Client) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.collections = make(map[string][]models.StoredSubmission)
	return nil
}

type Factory struct{}

func (f *Factory) Create(_ context.Context, _ string) (storage.Client, error) {
	return NewClient(), nil
}

func (f *Factory) GetType() string {
	return "memory"
}

// Dialer returns a dialer that serves every URI from memory.
func Dialer() storage.Dialer {
	f := &Factory{}
	return storage.DialerFunc(f.Create)
}

func init() {
	storage.Register("memory", &Factory{})
}
