package testutil

import "postpipe-connector/internal/routes"

// MultiTenantRoutes returns a document with a default and a premium database
// and one rule sending "vip-" forms to premium. URIs are env: tokens for
// DefaultURIVar and PremiumURIVar.
func MultiTenantRoutes() *routes.RouteConfig {
	return &routes.RouteConfig{
		Databases: map[string]routes.DatabaseEntry{
			"default": {URI: "env:" + DefaultURIVar, DBName: "main"},
			"premium": {URI: "env:" + PremiumURIVar, DBName: "vip"},
		},
		Rules: []routes.Rule{
			{Field: "formName", Match: "^vip-", Target: "premium"},
		},
		DefaultTarget: "default",
	}
}

const (
	DefaultURIVar = "TESTUTIL_DEFAULT_URI"
	PremiumURIVar = "TESTUTIL_PREMIUM_URI"
)
