package routes

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultAlias is used when a config has no defaultTarget, or there is no config.
const DefaultAlias = "default"

// ErrConfigNotFound is returned by a Source that has nothing to offer.
var ErrConfigNotFound = errors.New("routing config not found")

// DatabaseEntry names one database. Both fields accept "env:NAME" tokens.
type DatabaseEntry struct {
	URI    string `json:"uri" yaml:"uri"`
	DBName string `json:"dbName" yaml:"dbName"`
}

// Rule selects Target when the payload field Field matches the regex Match.
type Rule struct {
	Field  string `json:"field" yaml:"field"`
	Match  string `json:"match" yaml:"match"`
	Target string `json:"target" yaml:"target"`
}

// RouteConfig is the routing document. Treat it as read-only once loaded.
type RouteConfig struct {
	Databases     map[string]DatabaseEntry `json:"databases" yaml:"databases"`
	Rules         []Rule                   `json:"rules" yaml:"rules"`
	DefaultTarget string                   `json:"defaultTarget" yaml:"defaultTarget"`
}

// DefaultRouteConfig returns the skeleton document offered to new tenants.
func DefaultRouteConfig() *RouteConfig {
	return &RouteConfig{
		Databases: map[string]DatabaseEntry{
			DefaultAlias: {URI: "", DBName: "postpipe"},
		},
		Rules:         []Rule{},
		DefaultTarget: DefaultAlias,
	}
}

// DefaultAlias returns defaultTarget, or "default" when it is unset or c is nil.
func (c *RouteConfig) DefaultAlias() string {
	if c == nil || c.DefaultTarget == "" {
		return DefaultAlias
	}
	return c.DefaultTarget
}

// Lookup returns the database entry for alias.
func (c *RouteConfig) Lookup(alias string) (DatabaseEntry, bool) {
	if c == nil || alias == "" {
		return DatabaseEntry{}, false
	}
	entry, ok := c.Databases[alias]
	return entry, ok
}

// Aliases returns the configured aliases in sorted order.
func (c *RouteConfig) Aliases() []string {
	if c == nil {
		return nil
	}
	aliases := make([]string, 0, len(c.Databases))
	for alias := range c.Databases {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

// Validate reports structural problems. Every problem is independent, so the
// returned error joins all of them. The routing engine tolerates each one:
// a bad rule is skipped and a dangling alias falls back to process defaults.
func (c *RouteConfig) Validate() error {
	if c == nil {
		return nil
	}

	var problems []error
	for _, alias := range c.Aliases() {
		if strings.TrimSpace(alias) == "" {
			problems = append(problems, fmt.Errorf("database alias must not be empty"))
		}
	}

	for i, rule := range c.Rules {
		if rule.Field == "" {
			problems = append(problems, fmt.Errorf("rule %d: field is required", i))
		}
		if rule.Target == "" {
			problems = append(problems, fmt.Errorf("rule %d: target is required", i))
		} else if _, ok := c.Databases[rule.Target]; !ok {
			problems = append(problems, fmt.Errorf("rule %d: target %q is not a configured database", i, rule.Target))
		}
		if _, err := regexp.Compile(rule.Match); err != nil {
			problems = append(problems, fmt.Errorf("rule %d: invalid pattern %q: %w", i, rule.Match, err))
		}
	}

	if c.DefaultTarget != "" {
		if _, ok := c.Databases[c.DefaultTarget]; !ok {
			problems = append(problems, fmt.Errorf("defaultTarget %q is not a configured database", c.DefaultTarget))
		}
	}

	return errors.Join(problems...)
}
