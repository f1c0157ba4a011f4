package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry maps URI schemes to factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

func (r *Registry) Register(scheme string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(scheme)] = factory
}

// Dial creates a client with the factory registered for uri's scheme.
func (r *Registry) Dial(ctx context.Context, uri string) (Client, error) {
	scheme := Scheme(uri)
	if scheme == "" {
		return nil, fmt.Errorf("connection URI has no scheme")
	}

	r.mu.RLock()
	factory, exists := r.factories[scheme]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("no storage backend registered for scheme %q", scheme)
	}

	return factory.Create(ctx, uri)
}

func (r *Registry) GetAvailableTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for scheme := range r.factories {
		types = append(types, scheme)
	}
	sort.Strings(types)
	return types
}

func (r *Registry) IsRegistered(scheme string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[strings.ToLower(scheme)]
	return exists
}

// Scheme returns the lowercased text before the first ':' of uri, or "" if
// there is none.
func Scheme(uri string) string {
	scheme, _, found := strings.Cut(strings.TrimSpace(uri), ":")
	if !found {
		return ""
	}
	return strings.ToLower(scheme)
}

// DefaultRegistry is populated by the backend packages' init functions.
var DefaultRegistry = NewRegistry()

func Register(scheme string, factory Factory) {
	DefaultRegistry.Register(scheme, factory)
}

func Dial(ctx context.Context, uri string) (Client, error) {
	return DefaultRegistry.Dial(ctx, uri)
}

func GetAvailableTypes() []string {
	return DefaultRegistry.GetAvailableTypes()
}
