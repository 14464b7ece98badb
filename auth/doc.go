// Package auth provides the bearer token authorization core used by the drinks
// HTTP API. It focuses on access tokens issued by an external identity
// provider and carrying a custom "permissions" claim.
//
// The public surface is small: TokenFromHeader extracts a token from request
// headers, a Verifier turns that token into a verified Payload, and
// CheckPermission enforces a single required permission against it. A Gate
// composes the three and hands out per-route Guards.
//
// Example:
//
//	gate := auth.NewGate(verifier, auth.WithLogger(log))
//	detail := gate.Require("get:drinks-detail")
//
//	h := detail.Wrap(func(p auth.Payload, w http.ResponseWriter, r *http.Request) error {
//	    // p is verified and grants get:drinks-detail
//	    return nil
//	})
//
// # Errors
//
// Every rejection is an *Error carrying a wire code, a human readable
// description and an HTTP status. Match failures with errors.Is against the
// Err* sentinels:
//
//	if errors.Is(err, auth.ErrTokenExpired) { /* ... */ }
//
// All failures answer 401 by default. WithDeniedStatus switches permission
// failures to another status (typically 403) when clients allow it.
package auth
