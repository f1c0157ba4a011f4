package routing

import (
	"fmt"

	apperrors "postpipe-connector/internal/common/errors"
)

// errInjectedEnvUnset is returned when a caller-injected variable is not set.
func errInjectedEnvUnset(name string) error {
	return apperrors.RoutingError(fmt.Sprintf("injected database config references unset environment variable %q", name)).
		WithContext("tier", string(TierInjected))
}

func errInjectedEnvMissing() error {
	return apperrors.RoutingError("injected database config does not name an environment variable").
		WithContext("tier", string(TierInjected))
}

// errNoURI is returned when every tier resolved to an empty URI.
func errNoURI(alias string, tier Tier) error {
	return apperrors.RoutingError("no database URI resolved").
		WithContext("target", alias).
		WithContext("tier", string(tier))
}
