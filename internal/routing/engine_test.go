package routing

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "postpipe-connector/internal/common/errors"
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/models"
	"postpipe-connector/internal/routes"
)

var defaults = Defaults{URI: "mongodb://default-host:27017", DBName: "postpipe"}

func vipConfig() *routes.RouteConfig {
	return &routes.RouteConfig{
		Databases: map[string]routes.DatabaseEntry{
			"default": {URI: "mongodb://config-default", DBName: "main"},
			"premium": {URI: "env:ROUTING_TEST_PREMIUM_URI", DBName: "premium_db"},
		},
		Rules: []routes.Rule{
			{Field: "formName", Match: "^vip-.*", Target: "premium"},
		},
		DefaultTarget: "default",
	}
}

func mustInput(t *testing.T, payload *models.IngestPayload) *RouteInput {
	t.Helper()
	in, err := InputFromPayload(payload)
	require.NoError(t, err)
	return in
}

func newEngine(cfg *routes.RouteConfig, d Defaults) *Engine {
	return NewEngine(cfg, d, logging.NewNopLogger())
}

func TestDynamicEnvKey(t *testing.T) {
	tests := map[string]string{
		"secondary":    "MONGODB_URI_SECONDARY",
		"marketing-eu": "MONGODB_URI_MARKETING_EU",
		"a.b c":        "MONGODB_URI_A_B_C",
		" padded ":     "MONGODB_URI_PADDED",
		"already_ok":   "MONGODB_URI_ALREADY_OK",
	}
	for alias, want := range tests {
		assert.Equal(t, want, DynamicEnvKey(alias), alias)
	}
	assert.Equal(t, "postpipe_marketing", DynamicDBName("Marketing"))
}

func TestEngine_InjectedConfig(t *testing.T) {
	t.Setenv("ROUTING_TEST_INJECTED", "mongodb://injected")
	t.Setenv("MONGODB_URI_PREMIUM", "mongodb://dynamic")
	t.Setenv("ROUTING_TEST_PREMIUM_URI", "mongodb://premium")

	engine := newEngine(vipConfig(), defaults)

	t.Run("wins over every other tier", func(t *testing.T) {
		target, err := engine.Resolve(mustInput(t, &models.IngestPayload{
			FormName:       "vip-waitlist",
			TargetDatabase: "premium",
			DatabaseConfig: &models.DatabaseConfig{URI: " ROUTING_TEST_INJECTED ", DBName: "tenant_db"},
		}))
		require.NoError(t, err)
		assert.Equal(t, Target{URI: "mongodb://injected", DBName: "tenant_db", Alias: "ROUTING_TEST_INJECTED", Tier: TierInjected}, target)
	})

	t.Run("db name defaults to process default", func(t *testing.T) {
		target, err := engine.Resolve(&RouteInput{DatabaseConfig: &models.DatabaseConfig{URI: "ROUTING_TEST_INJECTED"}})
		require.NoError(t, err)
		assert.Equal(t, "postpipe", target.DBName)
	})

	t.Run("unset variable is a hard failure", func(t *testing.T) {
		_, err := engine.Resolve(mustInput(t, &models.IngestPayload{
			TargetDatabase: "premium",
			DatabaseConfig: &models.DatabaseConfig{URI: "ROUTING_TEST_NOT_SET"},
		}))
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRouting))
		assert.Contains(t, err.Error(), "ROUTING_TEST_NOT_SET")
	})

	t.Run("empty variable name is a hard failure", func(t *testing.T) {
		_, err := engine.Resolve(&RouteInput{DatabaseConfig: &models.DatabaseConfig{}})
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRouting))
	})
}

func TestEngine_DynamicConvention(t *testing.T) {
	t.Setenv("MONGODB_URI_MARKETING_EU", "mongodb://marketing")

	for _, cfg := range []*routes.RouteConfig{nil, vipConfig()} {
		engine := newEngine(cfg, defaults)

		target, err := engine.Resolve(mustInput(t, &models.IngestPayload{FormName: "vip-x", TargetDatabase: "Marketing-EU"}))
		require.NoError(t, err)
		assert.Equal(t, "mongodb://marketing", target.URI)
		assert.Equal(t, "postpipe_marketing-eu", target.DBName)
		assert.Equal(t, TierDynamicEnv, target.Tier)
	}
}

func TestEngine_Rules(t *testing.T) {
	t.Setenv("ROUTING_TEST_PREMIUM_URI", "mongodb://premium")
	engine := newEngine(vipConfig(), defaults)

	t.Run("vip form routes to premium", func(t *testing.T) {
		target, err := engine.Resolve(mustInput(t, &models.IngestPayload{FormName: "vip-waitlist"}))
		require.NoError(t, err)
		assert.Equal(t, "premium", target.Alias)
		assert.Equal(t, "mongodb://premium", target.URI)
		assert.Equal(t, "premium_db", target.DBName)
		assert.Equal(t, TierRule, target.Tier)
	})

	t.Run("general form routes to default", func(t *testing.T) {
		target, err := engine.Resolve(mustInput(t, &models.IngestPayload{FormName: "general"}))
		require.NoError(t, err)
		assert.Equal(t, "default", target.Alias)
		assert.Equal(t, "mongodb://config-default", target.URI)
		assert.Equal(t, TierConfigDefault, target.Tier)
	})

	t.Run("requested alias present in config wins over rules", func(t *testing.T) {
		target, err := engine.Resolve(mustInput(t, &models.IngestPayload{FormName: "vip-x", TargetDatabase: "default"}))
		require.NoError(t, err)
		assert.Equal(t, "default", target.Alias)
	})

	t.Run("unknown requested alias falls to rules", func(t *testing.T) {
		target, err := engine.Resolve(mustInput(t, &models.IngestPayload{FormName: "vip-x", TargetDatabase: "nowhere"}))
		require.NoError(t, err)
		assert.Equal(t, "premium", target.Alias)
	})
}

func TestEngine_FirstMatchingRuleWins(t *testing.T) {
	cfg := &routes.RouteConfig{
		Databases: map[string]routes.DatabaseEntry{
			"first":   {URI: "mongodb://first", DBName: "first"},
			"second":  {URI: "mongodb://second", DBName: "second"},
			"default": {URI: "mongodb://default", DBName: "default"},
		},
		Rules: []routes.Rule{
			{Field: "formId", Match: "[", Target: "second"},
			{Field: "data.plan", Match: "^ent", Target: "first"},
			{Field: "formId", Match: ".*", Target: "second"},
		},
	}
	engine := newEngine(cfg, defaults)
	assert.Len(t, engine.Rules(), 2, "invalid pattern is skipped")

	target, err := engine.Resolve(mustInput(t, &models.IngestPayload{
		FormID: "signup",
		Data:   map[string]interface{}{"plan": "enterprise"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "first", target.Alias)

	target, err = engine.Resolve(mustInput(t, &models.IngestPayload{FormID: "signup"}))
	require.NoError(t, err)
	assert.Equal(t, "second", target.Alias)
}

func TestEngine_NonStringFieldNeverMatches(t *testing.T) {
	cfg := vipConfig()
	cfg.Rules = []routes.Rule{{Field: "data.tier", Match: ".*", Target: "premium"}}
	engine := newEngine(cfg, defaults)

	for _, data := range []map[string]interface{}{
		{"tier": 3},
		{"tier": true},
		{"tier": map[string]interface{}{"name": "vip"}},
		{},
	} {
		target, err := engine.Resolve(mustInput(t, &models.IngestPayload{Data: data}))
		require.NoError(t, err)
		assert.Equal(t, "default", target.Alias)
	}
}

func TestEngine_RuleReadsUndeclaredTopLevelKeys(t *testing.T) {
	cfg := vipConfig()
	cfg.Rules = []routes.Rule{
		{Field: "plan", Match: "^gold$", Target: "premium"},
	}
	engine := newEngine(cfg, defaults)

	var payload models.IngestPayload
	require.NoError(t, json.Unmarshal([]byte(`{"formId":"signup","plan":"gold","data":{}}`), &payload))

	target, err := engine.Resolve(mustInput(t, &payload))
	require.NoError(t, err)
	assert.Equal(t, TierRule, target.Tier)
	assert.Equal(t, "premium", target.Alias)
}

func TestEngine_RuleFieldNamesAreLiteral(t *testing.T) {
	cfg := vipConfig()
	cfg.Rules = []routes.Rule{
		{Field: "form*", Match: ".*", Target: "premium"},
		{Field: "utm.source", Match: "^ads$", Target: "premium"},
	}
	engine := newEngine(cfg, defaults)

	var wildcard models.IngestPayload
	require.NoError(t, json.Unmarshal([]byte(`{"formId":"signup","formName":"news"}`), &wildcard))
	target, err := engine.Resolve(mustInput(t, &wildcard))
	require.NoError(t, err)
	assert.Equal(t, "default", target.Alias, "a wildcard name is not a path pattern")

	var dotted models.IngestPayload
	require.NoError(t, json.Unmarshal([]byte(`{"formId":"signup","utm.source":"ads"}`), &dotted))
	target, err = engine.Resolve(mustInput(t, &dotted))
	require.NoError(t, err)
	assert.Equal(t, "premium", target.Alias, "a top-level key containing a dot matches as a whole")

	var nested models.IngestPayload
	require.NoError(t, json.Unmarshal([]byte(`{"formId":"signup","utm":{"source":"ads"}}`), &nested))
	target, err = engine.Resolve(mustInput(t, &nested))
	require.NoError(t, err)
	assert.Equal(t, "premium", target.Alias)
}

func TestEngine_ConfigDefault(t *testing.T) {
	t.Run("empty token falls back to process defaults per field", func(t *testing.T) {
		cfg := &routes.RouteConfig{
			Databases:     map[string]routes.DatabaseEntry{"main": {URI: "env:ROUTING_TEST_UNSET", DBName: ""}},
			DefaultTarget: "main",
		}
		target, err := newEngine(cfg, defaults).Resolve(nil)
		require.NoError(t, err)
		assert.Equal(t, defaults.URI, target.URI)
		assert.Equal(t, defaults.DBName, target.DBName)
		assert.Equal(t, "main", target.Alias)
	})

	t.Run("token resolution reflects environment changes", func(t *testing.T) {
		cfg := &routes.RouteConfig{
			Databases: map[string]routes.DatabaseEntry{"default": {URI: "env:ROUTING_TEST_ROTATING", DBName: "db"}},
		}
		engine := newEngine(cfg, defaults)

		t.Setenv("ROUTING_TEST_ROTATING", "mongodb://old")
		target, err := engine.Resolve(nil)
		require.NoError(t, err)
		assert.Equal(t, "mongodb://old", target.URI)

		t.Setenv("ROUTING_TEST_ROTATING", "mongodb://new")
		target, err = engine.Resolve(nil)
		require.NoError(t, err)
		assert.Equal(t, "mongodb://new", target.URI)
	})

	t.Run("dangling default target uses process defaults", func(t *testing.T) {
		cfg := &routes.RouteConfig{Databases: map[string]routes.DatabaseEntry{}, DefaultTarget: "ghost"}
		target, err := newEngine(cfg, defaults).Resolve(nil)
		require.NoError(t, err)
		assert.Equal(t, TierProcessDefault, target.Tier)
		assert.Equal(t, "ghost", target.Alias)
	})
}

func TestEngine_ProcessDefault(t *testing.T) {
	t.Run("no config uses process defaults", func(t *testing.T) {
		target, err := newEngine(nil, defaults).Resolve(mustInput(t, &models.IngestPayload{FormID: "contact"}))
		require.NoError(t, err)
		assert.Equal(t, Target{URI: defaults.URI, DBName: "postpipe", Alias: "default", Tier: TierProcessDefault}, target)
	})

	t.Run("empty default URI is a routing error", func(t *testing.T) {
		_, err := newEngine(nil, Defaults{DBName: "postpipe"}).Resolve(mustInput(t, &models.IngestPayload{FormID: "contact"}))
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRouting))
	})

	t.Run("config entry with no URI anywhere is a routing error", func(t *testing.T) {
		_, err := newEngine(routes.DefaultRouteConfig(), Defaults{DBName: "postpipe"}).Resolve(nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRouting))
	})
}

func TestInputFromQuery(t *testing.T) {
	in := InputFromQuery(models.QueryOptions{TargetDatabase: "premium", Limit: 3})
	assert.Equal(t, "premium", in.TargetDatabase)
	assert.Nil(t, in.Document)

	nilIn, err := InputFromPayload(nil)
	assert.NoError(t, err)
	assert.Nil(t, nilIn)
}

func TestHolder_Store(t *testing.T) {
	holder := NewHolder(newEngine(nil, defaults), "environment")

	target, err := holder.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, TierProcessDefault, target.Tier)
	assert.Equal(t, "environment", holder.Source())

	holder.Store(newEngine(vipConfig(), defaults), "redis:postpipe:routes:acme")

	target, err = holder.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "default", target.Alias)
	assert.Equal(t, "mongodb://config-default", target.URI)
	assert.Equal(t, "redis:postpipe:routes:acme", holder.Source())
	assert.Len(t, holder.Engine().Rules(), 1)
}
