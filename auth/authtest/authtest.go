// Package authtest provides an in-process identity provider for tests: an RSA
// signing key, its published JWKS and helpers to mint access tokens.
package authtest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSPath is the path the test provider serves its key set on.
const JWKSPath = "/.well-known/jwks.json"

// Provider is a test identity provider.
type Provider struct {
	Key      *rsa.PrivateKey
	KeyID    string
	Issuer   string
	Audience string
}

// NewProvider generates a fresh 2048-bit RSA key identified by "test-key".
func NewProvider(t testing.TB, issuer, audience string) *Provider {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	return &Provider{Key: pk, KeyID: "test-key", Issuer: issuer, Audience: audience}
}

// JSONWebKey returns the public half of the signing key as a JWK.
func (p *Provider) JSONWebKey() jose.JSONWebKey {
	return jose.JSONWebKey{Key: &p.Key.PublicKey, KeyID: p.KeyID, Algorithm: "RS256", Use: "sig"}
}

// KeySet returns the published key set.
func (p *Provider) KeySet() jose.JSONWebKeySet {
	return jose.JSONWebKeySet{Keys: []jose.JSONWebKey{p.JSONWebKey()}}
}

// JWKS returns the key set encoded as a JWKS document.
func (p *Provider) JWKS(t testing.TB) []byte {
	t.Helper()
	b, err := json.Marshal(p.KeySet())
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return b
}

// Serve publishes the JWKS document on an httptest server closed at test end.
func (p *Provider) Serve(t testing.TB) *httptest.Server {
	t.Helper()
	doc := p.JWKS(t)
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+JWKSPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// Claims returns a valid claim set for the provider's issuer and audience,
// expiring in one hour and granting permissions.
func (p *Provider) Claims(permissions ...string) jwt.MapClaims {
	now := time.Now()
	perms := make([]any, 0, len(permissions))
	for _, s := range permissions {
		perms = append(perms, s)
	}
	return jwt.MapClaims{
		"iss":         p.Issuer,
		"sub":         "auth0|barista",
		"aud":         p.Audience,
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"permissions": perms,
	}
}

// Sign signs claims with the provider key under the provider's key id.
func (p *Provider) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	return p.SignWithKeyID(t, p.KeyID, claims)
}

// SignWithKeyID signs claims declaring kid in the header. An empty kid omits
// the header field entirely.
func (p *Provider) SignWithKeyID(t testing.TB, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(p.Key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}
