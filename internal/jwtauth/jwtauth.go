// Package jwtauth verifies RS256 bearer tokens issued by an external identity
// provider and maps every failure onto the auth error taxonomy.
package jwtauth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ggoodman/coffee-shop-go/auth"
	"github.com/ggoodman/coffee-shop-go/internal/jwks"
	"github.com/golang-jwt/jwt/v5"
)

// Config controls validation behavior for access tokens.
type Config struct {
	// Issuer is compared verbatim against the "iss" claim.
	Issuer string
	// Audience must appear in the "aud" claim.
	Audience string
	// AllowedAlgs restricts accepted signing algorithms. Defaults to RS256.
	AllowedAlgs []string
	// Leeway tolerates clock skew when checking time based claims.
	Leeway time.Duration
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// DefaultAlgs is the algorithm list used when Config.AllowedAlgs is empty.
var DefaultAlgs = []string{"RS256"}

// IssuerForDomain returns the issuer an Auth0 style provider uses for domain.
func IssuerForDomain(domain string) string {
	return "https://" + strings.TrimSuffix(domain, "/") + "/"
}

// Header is the subset of the JOSE header inspected before verification.
type Header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Typ string `json:"typ,omitempty"`
}

// ParseUnverifiedHeader decodes the header segment of token without checking
// anything else. It fails with auth.ErrMalformedToken when the header cannot
// be decoded or carries no kid.
func ParseUnverifiedHeader(token string) (Header, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Header{}, auth.ErrMalformedToken
	}
	raw, err := jwt.NewParser().DecodeSegment(parts[0])
	if err != nil {
		return Header{}, auth.ErrMalformedToken.WithCause(err)
	}
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return Header{}, auth.ErrMalformedToken.WithCause(err)
	}
	if h.Kid == "" {
		return Header{}, auth.ErrMalformedToken
	}
	return h, nil
}

// Verifier checks token signatures against keys located through a
// jwks.Resolver and validates the standard claims.
type Verifier struct {
	cfg      Config
	algs     []string
	resolver jwks.Resolver
	log      *slog.Logger
}

var _ auth.Verifier = (*Verifier)(nil)

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger used for key resolution failures.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		if l != nil {
			v.log = l
		}
	}
}

// NewVerifier returns a Verifier for cfg using resolver for key lookup.
func NewVerifier(cfg Config, resolver jwks.Resolver, opts ...Option) (*Verifier, error) {
	if resolver == nil {
		return nil, errors.New("jwtauth: key resolver is required")
	}
	algs := cfg.AllowedAlgs
	if len(algs) == 0 {
		algs = DefaultAlgs
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	v := &Verifier{
		cfg:      cfg,
		algs:     append([]string(nil), algs...),
		resolver: resolver,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// VerifyAndDecode verifies token and returns its full claim set.
//
// An expired token is reported as auth.ErrTokenExpired before its signature is
// checked. Every other failure after key resolution is reported as
// auth.ErrInvalidClaims for issuer or audience mismatches and
// auth.ErrTokenUnparseable otherwise.
func (v *Verifier) VerifyAndDecode(ctx context.Context, token string) (auth.Payload, error) {
	hdr, err := ParseUnverifiedHeader(token)
	if err != nil {
		return nil, err
	}

	key, err := v.resolver.ResolveKey(ctx, hdr.Kid)
	if err != nil {
		v.log.WarnContext(ctx, "jwt.key.resolve.fail", slog.String("kid", hdr.Kid), slog.String("err", err.Error()))
		return nil, auth.ErrKeyNotFound.WithCause(err)
	}
	if key == nil {
		v.log.InfoContext(ctx, "jwt.key.unknown", slog.String("kid", hdr.Kid))
		return nil, auth.ErrKeyNotFound
	}

	if v.expiredUnverified(token) {
		return nil, auth.ErrTokenExpired
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.algs),
		jwt.WithLeeway(v.cfg.Leeway),
		jwt.WithTimeFunc(v.cfg.Now),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.cfg.Audience))
	}
	claims := jwt.MapClaims{}
	_, err = jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key.Key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, auth.ErrTokenExpired.WithCause(err)
		case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, auth.ErrInvalidClaims.WithCause(err)
		case errors.Is(err, jwt.ErrTokenRequiredClaimMissing) && v.missingIdentityClaim(claims):
			// An absent iss or aud never equals the configured value.
			return nil, auth.ErrInvalidClaims.WithCause(err)
		default:
			return nil, auth.ErrTokenUnparseable.WithCause(err)
		}
	}
	return auth.Payload(claims), nil
}

// missingIdentityClaim reports whether a configured issuer or audience has no
// counterpart claim in claims.
func (v *Verifier) missingIdentityClaim(claims jwt.MapClaims) bool {
	if _, ok := claims["iss"]; v.cfg.Issuer != "" && !ok {
		return true
	}
	if _, ok := claims["aud"]; v.cfg.Audience != "" && !ok {
		return true
	}
	return false
}

// expiredUnverified reports whether the token's exp claim, read without
// verifying the signature, lies in the past. Undecodable claims are left for
// the verifying parse to reject.
func (v *Verifier) expiredUnverified(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return v.cfg.Now().After(exp.Add(v.cfg.Leeway))
}
