package routing

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "postpipe-connector/internal/common/errors"
	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/routes"
)

// CompiledRule is a routing rule with its pattern compiled.
type CompiledRule struct {
	Index int
	Rule  routes.Rule
	Regex *regexp.Regexp
	paths []string
}

// fieldPaths returns the gjson paths tried for field, in order: the whole
// name as one top-level key, then the nested path for dotted names. Path
// syntax characters in names are escaped.
func fieldPaths(field string) []string {
	if field == "" {
		return nil
	}
	paths := []string{gjson.Escape(field)}
	if strings.Contains(field, ".") {
		parts := strings.Split(field, ".")
		for i, part := range parts {
			parts[i] = gjson.Escape(part)
		}
		paths = append(paths, strings.Join(parts, "."))
	}
	return paths
}

// compileRules compiles rules in order. A rule whose pattern does not compile
// is logged once here and left out.
func compileRules(rules []routes.Rule, logger logging.Logger) []CompiledRule {
	compiled := make([]CompiledRule, 0, len(rules))
	for i, rule := range rules {
		re, err := regexp.Compile(rule.Match)
		if err != nil {
			logger.Error("Skipping routing rule", apperrors.ConfigRuleError(i, rule.Match, err),
				logging.Field{Key: "field", Value: rule.Field},
				logging.Field{Key: "target", Value: rule.Target},
			)
			continue
		}
		compiled = append(compiled, CompiledRule{Index: i, Rule: rule, Regex: re, paths: fieldPaths(rule.Field)})
	}
	return compiled
}

// Matches reports whether the rule's field in document is a string matching
// the pattern. The first path that exists decides.
func (r CompiledRule) Matches(document []byte) (string, bool) {
	for _, path := range r.paths {
		value := gjson.GetBytes(document, path)
		if !value.Exists() {
			continue
		}
		if value.Type != gjson.String {
			return "", false
		}
		return value.Str, r.Regex.MatchString(value.Str)
	}
	return "", false
}

// firstMatch returns the first rule, in list order, that matches document.
func firstMatch(rules []CompiledRule, document []byte) (CompiledRule, string, bool) {
	for _, rule := range rules {
		if value, ok := rule.Matches(document); ok {
			return rule, value, true
		}
	}
	return CompiledRule{}, "", false
}
