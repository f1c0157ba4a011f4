package routes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "postpipe-connector/internal/common/errors"
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/redis"
)

const sampleJSON = `{
  "databases": {
    "default": {"uri": "env:MONGODB_URI", "dbName": "postpipe"},
    "premium": {"uri": "env:PREMIUM_URI", "dbName": "premium_db"}
  },
  "rules": [{"field": "formName", "match": "^vip-.*", "target": "premium"}],
  "defaultTarget": "default"
}`

const sampleYAML = `
databases:
  default:
    uri: mongodb://localhost:27017
    dbName: postpipe
rules:
  - field: data.plan
    match: ^enterprise$
    target: default
defaultTarget: default
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveValue(t *testing.T) {
	t.Setenv("ROUTES_TEST_URI", "mongodb://secret@host")

	assert.Equal(t, "mongodb://secret@host", ResolveValue("env:ROUTES_TEST_URI"))
	assert.Equal(t, "mongodb://literal", ResolveValue("mongodb://literal"))
	assert.Equal(t, "", ResolveValue("env:ROUTES_TEST_UNSET"))
	assert.Equal(t, "", ResolveValue(""))

	t.Run("resolution is never cached", func(t *testing.T) {
		t.Setenv("ROUTES_TEST_URI", "mongodb://rotated")
		assert.Equal(t, "mongodb://rotated", ResolveValue("env:ROUTES_TEST_URI"))
	})
}

func TestDefaultRouteConfig(t *testing.T) {
	cfg := DefaultRouteConfig()
	assert.Equal(t, "default", cfg.DefaultTarget)
	assert.Empty(t, cfg.Rules)
	assert.Equal(t, DatabaseEntry{URI: "", DBName: "postpipe"}, cfg.Databases["default"])
	assert.NoError(t, cfg.Validate())
}

func TestRouteConfig_DefaultAlias(t *testing.T) {
	var nilCfg *RouteConfig
	assert.Equal(t, "default", nilCfg.DefaultAlias())
	assert.Equal(t, "default", (&RouteConfig{}).DefaultAlias())
	assert.Equal(t, "main", (&RouteConfig{DefaultTarget: "main"}).DefaultAlias())
}

func TestRouteConfig_Validate(t *testing.T) {
	cfg := &RouteConfig{
		Databases: map[string]DatabaseEntry{"default": {}},
		Rules: []Rule{
			{Field: "", Match: "x", Target: "default"},
			{Field: "formName", Match: "[", Target: "default"},
			{Field: "formName", Match: "x", Target: "ghost"},
		},
		DefaultTarget: "missing",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rule 0: field is required")
	assert.Contains(t, err.Error(), "rule 1: invalid pattern")
	assert.Contains(t, err.Error(), `rule 2: target "ghost"`)
	assert.Contains(t, err.Error(), `defaultTarget "missing"`)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "db-routes.json")
		writeFile(t, path, sampleJSON)

		cfg, err := FileSource{Path: path}.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, cfg.Databases, 2)
		assert.Equal(t, "env:PREMIUM_URI", cfg.Databases["premium"].URI)
		assert.Equal(t, Rule{Field: "formName", Match: "^vip-.*", Target: "premium"}, cfg.Rules[0])
	})

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "db-routes.yaml")
		writeFile(t, path, sampleYAML)

		cfg, err := FileSource{Path: path}.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "mongodb://localhost:27017", cfg.Databases["default"].URI)
		assert.Equal(t, "data.plan", cfg.Rules[0].Field)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := FileSource{Path: filepath.Join(dir, "absent.json")}.Load(context.Background())
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("unparseable", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		writeFile(t, path, `{"databases": `)

		_, err := FileSource{Path: path}.Load(context.Background())
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfigLoad))
	})

	t.Run("null document", func(t *testing.T) {
		path := filepath.Join(dir, "null.json")
		writeFile(t, path, `null`)

		_, err := FileSource{Path: path}.Load(context.Background())
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfigLoad))
	})
}

func TestFileSources(t *testing.T) {
	sources := FileSources("")
	require.Len(t, sources, 3)
	assert.Equal(t, "file:"+filepath.Join("src", "config", "db-routes.json"), sources[0].Name())

	sources = FileSources("/etc/routes.yaml")
	require.Len(t, sources, 4)
	assert.Equal(t, "file:/etc/routes.yaml", sources[0].Name())
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "src", "config", "db-routes.json")
	good := filepath.Join(dir, "config", "db-routes.json")
	writeFile(t, broken, `not json`)
	writeFile(t, good, sampleJSON)

	t.Run("unparseable candidate falls through to the next", func(t *testing.T) {
		loader := NewLoader(logging.NewNopLogger(),
			FileSource{Path: filepath.Join(dir, "absent.json")},
			FileSource{Path: broken},
			FileSource{Path: good},
		)

		cfg, source := loader.Load(context.Background())
		require.NotNil(t, cfg)
		assert.Equal(t, "file:"+good, source)
		assert.Equal(t, "default", cfg.DefaultTarget)
	})

	t.Run("no source yields nil", func(t *testing.T) {
		loader := NewLoader(logging.NewNopLogger(), FileSource{Path: broken})

		cfg, source := loader.Load(context.Background())
		assert.Nil(t, cfg)
		assert.Empty(t, source)
	})

	t.Run("default candidates relative to working directory", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		t.Cleanup(func() { os.Chdir(wd) })

		cfg, source := NewLoader(logging.NewNopLogger(), FileSources("")...).Load(context.Background())
		require.NotNil(t, cfg)
		assert.Equal(t, "file:"+filepath.Join("config", "db-routes.json"), source)
	})
}

func setupStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := redis.NewClient(&redis.Config{Address: mr.Addr()})
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	t.Run("missing tenant", func(t *testing.T) {
		_, err := store.Get(ctx, "acme")
		assert.ErrorIs(t, err, ErrConfigNotFound)

		cfg, err := store.GetOrDefault(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, DefaultRouteConfig(), cfg)
	})

	t.Run("save and get", func(t *testing.T) {
		cfg, err := Decode([]byte(sampleJSON), FormatJSON)
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, "acme", cfg))

		assert.True(t, mr.Exists("postpipe:routes:acme"))

		got, err := store.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, cfg, got)
	})

	t.Run("save rejects invalid config", func(t *testing.T) {
		bad := &RouteConfig{Rules: []Rule{{Field: "formName", Match: "(", Target: "x"}}}
		err := store.Save(ctx, "broken", bad)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
		assert.False(t, mr.Exists("postpipe:routes:broken"))

		assert.Error(t, store.Save(ctx, " ", DefaultRouteConfig()))
	})

	t.Run("corrupt document", func(t *testing.T) {
		require.NoError(t, mr.Set("postpipe:routes:corrupt", "{"))
		_, err := store.Get(ctx, "corrupt")
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfigLoad))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "acme"))
		_, err := store.Get(ctx, "acme")
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})
}

func TestLoader_TenantStoreWinsOverFiles(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	tenantCfg := &RouteConfig{
		Databases:     map[string]DatabaseEntry{"tenant": {URI: "mongodb://tenant", DBName: "t"}},
		DefaultTarget: "tenant",
	}
	require.NoError(t, store.Save(ctx, "acme", tenantCfg))

	path := filepath.Join(t.TempDir(), "db-routes.json")
	writeFile(t, path, sampleJSON)

	loader := NewLoader(logging.NewNopLogger(),
		TenantSource{Store: store, Tenant: "acme"},
		FileSource{Path: path},
	)
	cfg, source := loader.Load(ctx)
	require.NotNil(t, cfg)
	assert.Equal(t, "redis:postpipe:routes:acme", source)
	assert.Equal(t, "tenant", cfg.DefaultTarget)

	loader = NewLoader(logging.NewNopLogger(),
		TenantSource{Store: store, Tenant: "other"},
		FileSource{Path: path},
	)
	_, source = loader.Load(ctx)
	assert.Equal(t, "file:"+path, source)
}
