package signature

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false when the header is missing or malformed.
func BearerToken(r *http.Request) (token string, ok bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// CheckBearer authenticates a read request against secret. It returns
// ErrMissingToken or ErrTokenMismatch so callers can tell 401 from 403.
func CheckBearer(r *http.Request, secret string) error {
	token, ok := BearerToken(r)
	if !ok {
		return ErrMissingToken
	}
	if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
		return ErrTokenMismatch
	}
	return nil
}
