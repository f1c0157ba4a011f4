package routes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "postpipe-connector/internal/common/errors"
	"postpipe-connector/internal/redis"
)

// TenantKeyPrefix namespaces per-tenant routing documents in Redis.
const TenantKeyPrefix = "postpipe:routes:"

// RedisStore keeps one RouteConfig per tenant.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func tenantKey(tenant string) string {
	return TenantKeyPrefix + tenant
}

// Get returns ErrConfigNotFound when the tenant has no stored document.
func (s *RedisStore) Get(ctx context.Context, tenant string) (*RouteConfig, error) {
	raw, err := s.client.Get(ctx, tenantKey(tenant))
	if err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, apperrors.ConfigLoadError(tenantKey(tenant), err)
	}

	cfg, err := Decode([]byte(raw), FormatJSON)
	if err != nil {
		return nil, apperrors.ConfigLoadError(tenantKey(tenant), err)
	}
	return cfg, nil
}

// Save validates cfg and stores it for tenant. Invalid documents are rejected
// so a bad edit never replaces a working one.
func (s *RedisStore) Save(ctx context.Context, tenant string, cfg *RouteConfig) error {
	if strings.TrimSpace(tenant) == "" {
		return apperrors.ValidationError("tenant is required")
	}
	if cfg == nil {
		return apperrors.ValidationError("routing config is required")
	}
	if err := cfg.Validate(); err != nil {
		return apperrors.ValidationError(err.Error())
	}

	if err := s.client.Set(ctx, tenantKey(tenant), cfg, 0); err != nil {
		return fmt.Errorf("failed to save routing config for tenant %s: %w", tenant, err)
	}
	return nil
}

// GetOrDefault returns the stored document or DefaultRouteConfig.
func (s *RedisStore) GetOrDefault(ctx context.Context, tenant string) (*RouteConfig, error) {
	cfg, err := s.Get(ctx, tenant)
	if errors.Is(err, ErrConfigNotFound) {
		return DefaultRouteConfig(), nil
	}
	return cfg, err
}

// Delete removes the tenant document. Missing documents are not an error.
func (s *RedisStore) Delete(ctx context.Context, tenant string) error {
	return s.client.Delete(ctx, tenantKey(tenant))
}

// TenantSource adapts one tenant's stored document to a Source.
type TenantSource struct {
	Store  *RedisStore
	Tenant string
}

func (s TenantSource) Name() string {
	return "redis:" + tenantKey(s.Tenant)
}

func (s TenantSource) Load(ctx context.Context) (*RouteConfig, error) {
	if s.Store == nil || s.Tenant == "" {
		return nil, ErrConfigNotFound
	}
	return s.Store.Get(ctx, s.Tenant)
}
