// Package pool keeps one live storage client per literal connection URI.
//
// The first request for a URI stores an in-flight entry before dialing, so
// every concurrent request for the same URI waits on that one dial. The dial
// is detached from the requesting context and bounded only by the connect
// timeout: a caller that gives up does not abort a connection other callers
// are waiting for. A failed dial is forgotten so the next request tries again.
package pool

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "postpipe-connector/internal/common/errors"
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/storage"
)

// DefaultConnectTimeout bounds a dial when Config.ConnectTimeout is zero.
const DefaultConnectTimeout = 10 * time.Second

// DialObserver is told about every completed dial.
type DialObserver func(scheme string, elapsed time.Duration, err error)

type Config struct {
	ConnectTimeout time.Duration
	Logger         logging.Logger
	OnDial         DialObserver
}

// entry is one pool slot. client and err are written once, before done is closed.
type entry struct {
	done      chan struct{}
	client    storage.Client
	err       error
	createdAt time.Time
}

func (e *entry) ready() bool {
	select {
	case <-e.done:
		return e.client != nil
	default:
		return false
	}
}

// Manager owns every client it hands out. Callers borrow clients and must not
// close them; CloseAll closes them at shutdown.
type Manager struct {
	dialer         storage.Dialer
	connectTimeout time.Duration
	logger         logging.Logger
	onDial         DialObserver

	mu      sync.Mutex
	entries map[string]*entry

	dials        atomic.Int64
	dialFailures atomic.Int64
}

func NewManager(dialer storage.Dialer, config Config) *Manager {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}
	if config.Logger == nil {
		config.Logger = logging.Named("pool")
	}
	return &Manager{
		dialer:         dialer,
		connectTimeout: config.ConnectTimeout,
		logger:         config.Logger,
		onDial:         config.OnDial,
		entries:        make(map[string]*entry),
	}
}

// Get returns the client for uri, dialing it on first use. If ctx ends while
// waiting, Get returns ctx.Err() and the dial carries on for other callers.
func (m *Manager) Get(ctx context.Context, uri string) (storage.Client, error) {
	if uri == "" {
		return nil, apperrors.ValidationError("connection URI is empty")
	}

	m.mu.Lock()
	e, exists := m.entries[uri]
	if !exists {
		e = &entry{done: make(chan struct{}), createdAt: time.Now()}
		m.entries[uri] = e
		m.mu.Unlock()

		m.logger.Info("Creating new connection pool", logging.Field{Key: "uri", Value: MaskURI(uri)})
		go m.dial(context.WithoutCancel(ctx), uri, e)
	} else {
		m.mu.Unlock()
	}

	select {
	case <-e.done:
		if e.err != nil {
			return nil, e.err
		}
		return e.client, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Manager) dial(ctx context.Context, uri string, e *entry) {
	defer close(e.done)

	ctx, cancel := context.WithTimeout(ctx, m.connectTimeout)
	defer cancel()

	m.dials.Add(1)
	start := time.Now()
	client, err := m.dialer.Dial(ctx, uri)
	elapsed := time.Since(start)

	if m.onDial != nil {
		m.onDial(storage.Scheme(uri), elapsed, err)
	}

	if err != nil {
		m.dialFailures.Add(1)
		m.mu.Lock()
		if m.entries[uri] == e {
			delete(m.entries, uri)
		}
		m.mu.Unlock()

		e.err = apperrors.StorageError("failed to connect to database", err).
			WithContext("uri", MaskURI(uri))
		m.logger.Error("Connection failed", err,
			logging.Field{Key: "uri", Value: MaskURI(uri)},
			logging.Field{Key: "elapsed_ms", Value: elapsed.Milliseconds()},
		)
		return
	}

	e.client = client
	m.logger.Info("Connected to database host",
		logging.Field{Key: "uri", Value: MaskURI(uri)},
		logging.Field{Key: "elapsed_ms", Value: elapsed.Milliseconds()},
	)
}

// CloseAll empties the pool and closes every client, waiting for in-flight
// dials to finish first. Close errors are joined.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	var errs []error
	for uri, e := range entries {
		select {
		case <-e.done:
		case <-ctx.Done():
			errs = append(errs, apperrors.StorageError("gave up waiting for connection to close", ctx.Err()).
				WithContext("uri", MaskURI(uri)))
			continue
		}
		if e.client == nil {
			continue
		}
		if err := e.client.Close(ctx); err != nil {
			m.logger.Warn("Error closing connection",
				logging.Field{Key: "uri", Value: MaskURI(uri)},
				logging.Err(err),
			)
			errs = append(errs, apperrors.StorageError("failed to close connection", err).
				WithContext("uri", MaskURI(uri)))
			continue
		}
		m.logger.Info("Closed connection", logging.Field{Key: "uri", Value: MaskURI(uri)})
	}
	return errors.Join(errs...)
}

// Len returns the number of pool entries, including in-flight dials.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type Stats struct {
	Clients      int   `json:"clients"`
	Pending      int   `json:"pending"`
	Dials        int64 `json:"dials"`
	DialFailures int64 `json:"dialFailures"`
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{Dials: m.dials.Load(), DialFailures: m.dialFailures.Load()}
	for _, e := range m.entries {
		if e.ready() {
			s.Clients++
		} else {
			s.Pending++
		}
	}
	return s
}

// Health pings every connected client. Keys are masked URIs.
func (m *Manager) Health(ctx context.Context) map[string]string {
	m.mu.Lock()
	ready := make(map[string]storage.Client, len(m.entries))
	for uri, e := range m.entries {
		if e.ready() {
			ready[MaskURI(uri)] = e.client
		}
	}
	m.mu.Unlock()

	status := make(map[string]string, len(ready))
	for masked, client := range ready {
		if err := client.Ping(ctx); err != nil {
			status[masked] = err.Error()
			continue
		}
		status[masked] = "ok"
	}
	return status
}

// URIs lists the masked URIs currently pooled, sorted.
func (m *Manager) URIs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	uris := make([]string, 0, len(m.entries))
	for uri := range m.entries {
		uris = append(uris, MaskURI(uri))
	}
	sort.Strings(uris)
	return uris
}

// MaskURI replaces everything between "//" and the last '@' with "***".
// Masking runs to the last '@' so a password containing '@' is still hidden.
func MaskURI(uri string) string {
	i := strings.Index(uri, "//")
	if i < 0 {
		return uri
	}
	rest := uri[i+2:]
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return uri
	}
	return uri[:i+2] + "***" + rest[at:]
}
