package testutil

import (
	"context"
	"sync"

	"postpipe-connector/internal/models"
	"postpipe-connector/internal/storage"
	"postpipe-connector/internal/storage/memory"
)

// MockClient implements storage.Client over an in-memory store with
// per-method error injection and call counting.
type MockClient struct {
	*memory.Client

	mu    sync.Mutex
	calls map[string]int

	// Control error injection
	ErrorOnMethod map[string]error
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	return &MockClient{
		Client:        memory.NewClient(),
		calls:         make(map[string]int),
		ErrorOnMethod: make(map[string]error),
	}
}

func (m *MockClient) record(method string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	return m.ErrorOnMethod[method]
}

// SetError makes method fail with err from now on.
func (m *MockClient) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorOnMethod[method] = err
}

// Calls returns how often method was invoked.
func (m *MockClient) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockClient) Insert(ctx context.Context, db, collection string, doc *models.StoredSubmission) error {
	if err := m.record("Insert"); err != nil {
		return err
	}
	return m.Client.Insert(ctx, db, collection, doc)
}

func (m *MockClient) Find(ctx context.Context, db, collection string, limit int) ([]models.StoredSubmission, error) {
	if err := m.record("Find"); err != nil {
		return nil, err
	}
	return m.Client.Find(ctx, db, collection, limit)
}

func (m *MockClient) Ping(ctx context.Context) error {
	if err := m.record("Ping"); err != nil {
		return err
	}
	return m.Client.Ping(ctx)
}

func (m *MockClient) Close(ctx context.Context) error {
	if err := m.record("Close"); err != nil {
		return err
	}
	return m.Client.Close(ctx)
}

// MockDialer hands out one MockClient per URI and counts dials.
type MockDialer struct {
	mu      sync.Mutex
	clients map[string]*MockClient
	dials   map[string]int

	// Err fails every dial when set
	Err error
}

func NewMockDialer() *MockDialer {
	return &MockDialer{
		clients: make(map[string]*MockClient),
		dials:   make(map[string]int),
	}
}

func (d *MockDialer) Dial(_ context.Context, uri string) (storage.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[uri]++
	if d.Err != nil {
		return nil, d.Err
	}
	c, ok := d.clients[uri]
	if !ok {
		c = NewMockClient()
		d.clients[uri] = c
	}
	return c, nil
}

// Client returns the client dialed for uri, or nil.
func (d *MockDialer) Client(uri string) *MockClient {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clients[uri]
}

// Dials returns how often uri was dialed.
func (d *MockDialer) Dials(uri string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[uri]
}
