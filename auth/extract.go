package auth

import (
	"net/http"
	"strings"
)

// AuthorizationHeader is the canonical request header carrying the bearer token.
const AuthorizationHeader = "Authorization"

// TokenFromHeader pulls the bearer token out of h. The header value must be
// exactly two whitespace-delimited parts, the first of which is "bearer" in
// any letter case. The token is returned verbatim.
func TokenFromHeader(h http.Header) (string, error) {
	parts := strings.Fields(h.Get(AuthorizationHeader))
	if len(parts) == 0 {
		return "", ErrMissingHeader
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidHeaderScheme
	}
	switch {
	case len(parts) == 1:
		return "", ErrMissingToken
	case len(parts) > 2:
		return "", ErrMalformedHeader
	}
	return parts[1], nil
}
