package jwks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// DefaultURL returns the conventional key set location for an identity
// provider domain such as "example.auth0.com".
func DefaultURL(domain string) string {
	return "https://" + strings.TrimSuffix(domain, "/") + "/.well-known/jwks.json"
}

// DiscoverURL reads the OpenID Connect discovery document of issuer and
// returns its jwks_uri.
func DiscoverURL(ctx context.Context, issuer string) (string, error) {
	if issuer == "" {
		return "", errors.New("jwks: issuer is required for discovery")
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("jwks: oidc discovery failed: %w", err)
	}
	var meta struct {
		JwksURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return "", fmt.Errorf("jwks: invalid discovery metadata: %w", err)
	}
	if meta.JwksURI == "" {
		return "", errors.New("jwks: discovery incomplete: missing jwks_uri")
	}
	return meta.JwksURI, nil
}
