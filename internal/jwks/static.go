package jwks

import (
	"context"

	jose "github.com/go-jose/go-jose/v4"
)

var _ Resolver = (*Static)(nil)

// Static resolves keys from a fixed in-memory key set.
type Static struct {
	keys []jose.JSONWebKey
}

// NewStatic returns a resolver over set.
func NewStatic(set jose.JSONWebKeySet) *Static {
	return &Static{keys: append([]jose.JSONWebKey(nil), set.Keys...)}
}

// ResolveKey returns the first key whose identifier equals kid.
func (s *Static) ResolveKey(_ context.Context, kid string) (*jose.JSONWebKey, error) {
	for i := range s.keys {
		if s.keys[i].KeyID == kid {
			k := s.keys[i]
			return &k, nil
		}
	}
	return nil, nil
}
