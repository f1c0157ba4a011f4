package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"postpipe-connector/internal/storage"
)

func TestRegistered(t *testing.T) {
	assert.True(t, storage.DefaultRegistry.IsRegistered("postgres"))
	assert.True(t, storage.DefaultRegistry.IsRegistered("postgresql"))
	assert.Equal(t, "postgres", (&Factory{}).GetType())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
}
