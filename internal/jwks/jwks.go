// Package jwks resolves token signing keys by key identifier from an identity
// provider's published JSON Web Key Set.
package jwks

import (
	"context"
	"encoding/json"
	"fmt"

	jose "github.com/go-jose/go-jose/v4"
)

// Resolver looks up public key material by key identifier.
//
// A (nil, nil) result means the key set was obtained but holds no key with
// that identifier. A non-nil error means the key set itself could not be
// obtained.
type Resolver interface {
	ResolveKey(ctx context.Context, kid string) (*jose.JSONWebKey, error)
}

// DocumentSource produces raw JWKS documents.
type DocumentSource interface {
	Document(ctx context.Context) ([]byte, error)
}

// FetchRecorder observes key set fetches. result is "ok" or "error".
type FetchRecorder interface {
	ObserveFetch(source, result string)
}

// Record is the subset of a JWKS key record this package inspects before
// deciding to decode the full key.
type Record struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg,omitempty"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// FindKey scans the "keys" array of doc for the first record whose kid equals
// kid and decodes it. Records with other identifiers are never decoded, so a
// malformed sibling key cannot make the lookup fail.
func FindKey(doc []byte, kid string) (*jose.JSONWebKey, error) {
	var set struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(doc, &set); err != nil {
		return nil, fmt.Errorf("jwks: decode key set: %w", err)
	}
	for _, raw := range set.Keys {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil || rec.Kid != kid {
			continue
		}
		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			return nil, fmt.Errorf("jwks: decode key %q: %w", kid, err)
		}
		if !jwk.IsPublic() {
			return nil, fmt.Errorf("jwks: key %q is not a public key", kid)
		}
		return &jwk, nil
	}
	return nil, nil
}
