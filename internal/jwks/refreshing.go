package jwks

import (
	"context"
	"errors"
	"fmt"

	"github.com/MicahParks/jwkset"
	keyfunc "github.com/MicahParks/keyfunc/v3"
	jose "github.com/go-jose/go-jose/v4"
)

var _ Resolver = (*Refreshing)(nil)

// Refreshing keeps the key set in memory and refreshes it in the background
// until the context given to NewRefreshing is cancelled. Unknown kids trigger
// a rate-limited refresh inside the underlying store.
type Refreshing struct {
	kf keyfunc.Keyfunc
}

// NewRefreshing starts background refreshing of the key set at url.
func NewRefreshing(ctx context.Context, url string) (*Refreshing, error) {
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("jwks: init refreshing store: %w", err)
	}
	return &Refreshing{kf: kf}, nil
}

// ResolveKey reads kid from the in-memory store.
func (r *Refreshing) ResolveKey(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	jwk, err := r.kf.Storage().KeyRead(ctx, kid)
	if err != nil {
		if errors.Is(err, jwkset.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("jwks: read key %q: %w", kid, err)
	}
	m := jwk.Marshal()
	return &jose.JSONWebKey{
		Key:       jwk.Key(),
		KeyID:     m.KID,
		Algorithm: string(m.ALG),
		Use:       string(m.USE),
	}, nil
}
