package auth

import (
	"fmt"
	"net/http"
)

// Kind identifies a member of the authorization failure taxonomy. Callers
// match on kinds with errors.Is against the exported Err* values.
type Kind int

const (
	KindMissingHeader Kind = iota + 1
	KindInvalidHeaderScheme
	KindMissingToken
	KindMalformedHeader
	KindMalformedToken
	KindKeyNotFound
	KindTokenExpired
	KindInvalidClaims
	KindTokenUnparseable
	KindPermissionsClaimMissing
	KindPermissionDenied
)

var kindNames = map[Kind]string{
	KindMissingHeader:           "MissingHeader",
	KindInvalidHeaderScheme:     "InvalidHeaderScheme",
	KindMissingToken:            "MissingToken",
	KindMalformedHeader:         "MalformedHeader",
	KindMalformedToken:          "MalformedToken",
	KindKeyNotFound:             "KeyNotFound",
	KindTokenExpired:            "TokenExpired",
	KindInvalidClaims:           "InvalidClaims",
	KindTokenUnparseable:        "TokenUnparseable",
	KindPermissionsClaimMissing: "PermissionsClaimMissing",
	KindPermissionDenied:        "PermissionDenied",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is the single failure type produced by the authorization core. Code
// is the machine-readable wire code, Description the message surfaced to
// clients and Status the HTTP status the boundary responds with.
type Error struct {
	Kind        Kind
	Code        string
	Description string
	Status      int

	// cause is the underlying library error, if any. It is never exposed to
	// clients but is available to logs through Unwrap.
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("auth: %s: %s: %v", e.Code, e.Description, e.cause)
	}
	return fmt.Sprintf("auth: %s: %s", e.Code, e.Description)
}

func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is an *Error of the same Kind, so that
// errors.Is(err, auth.ErrTokenExpired) works on wrapped or re-statused copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithCause returns a copy of e carrying cause for diagnostics.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// WithStatus returns a copy of e answering with status instead.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.Status = status
	return &cp
}

func newError(kind Kind, code, description string) *Error {
	return &Error{Kind: kind, Code: code, Description: description, Status: http.StatusUnauthorized}
}

// Sentinel values for each taxonomy member. Treat them as read-only templates;
// use WithCause/WithStatus to derive request-specific copies.
var (
	ErrMissingHeader           = newError(KindMissingHeader, "authorization_header_missing", "Authorization header is expected.")
	ErrInvalidHeaderScheme     = newError(KindInvalidHeaderScheme, "invalid_header", `Authorization header must start with "Bearer".`)
	ErrMissingToken            = newError(KindMissingToken, "invalid_header", "Token not found.")
	ErrMalformedHeader         = newError(KindMalformedHeader, "invalid_header", "Authorization header must be bearer token.")
	ErrMalformedToken          = newError(KindMalformedToken, "invalid_header", "Authorization malformed.")
	ErrKeyNotFound             = newError(KindKeyNotFound, "invalid_header", "Unable to find the appropriate key.")
	ErrTokenExpired            = newError(KindTokenExpired, "token_expired", "Token expired.")
	ErrInvalidClaims           = newError(KindInvalidClaims, "invalid_claims", "Incorrect claims. Please, check the audience and issuer.")
	ErrTokenUnparseable        = newError(KindTokenUnparseable, "invalid_header", "Unable to parse authentication token.")
	ErrPermissionsClaimMissing = newError(KindPermissionsClaimMissing, "invalid_claims", "Permissions not included in JWT.")
	ErrPermissionDenied        = newError(KindPermissionDenied, "unauthorized", "Permission not found.")
)
