package routes

import (
	"os"
	"strings"

	"postpipe-connector/internal/common/logging"
)

// EnvPrefix marks a value that names an environment variable.
const EnvPrefix = "env:"

// ResolveValue returns the value of the named environment variable for
// "env:NAME" tokens and the token itself otherwise. An unset variable
// resolves to "" and is logged.
func ResolveValue(token string) string {
	name, ok := strings.CutPrefix(token, EnvPrefix)
	if !ok {
		return token
	}

	name = strings.TrimSpace(name)
	value := os.Getenv(name)
	if value == "" {
		logging.Warn("Environment variable referenced by routing config is empty",
			logging.Field{Key: "variable", Value: name},
		)
	}
	return value
}
