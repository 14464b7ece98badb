package jwks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoodman/coffee-shop-go/storage"
	jose "github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
)

const (
	defaultCacheTTL = 10 * time.Minute
	cacheKey        = "jwks:document"
)

var _ Resolver = (*Cached)(nil)

// Cached serves key lookups from a stored copy of the key set document and
// only goes to the source when the copy is missing, expired, or lacks the
// requested kid. Concurrent fetches are collapsed into one.
type Cached struct {
	src   DocumentSource
	store storage.Storage
	ttl   time.Duration
	key   string
	log   *slog.Logger
	group singleflight.Group
}

// CachedOption configures a Cached resolver.
type CachedOption func(*Cached)

// WithCacheKey overrides the storage key holding the document. Useful when
// several issuers share one backend.
func WithCacheKey(key string) CachedOption {
	return func(c *Cached) {
		if key != "" {
			c.key = key
		}
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l *slog.Logger) CachedOption {
	return func(c *Cached) {
		if l != nil {
			c.log = l
		}
	}
}

// NewCached wraps src with store. A non-positive ttl selects the default of
// ten minutes.
func NewCached(src DocumentSource, store storage.Storage, ttl time.Duration, opts ...CachedOption) *Cached {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	c := &Cached{
		src:   src,
		store: store,
		ttl:   ttl,
		key:   cacheKey,
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveKey looks kid up in the cached document. An unknown kid triggers one
// refetch so that keys published after the document was cached are found.
func (c *Cached) ResolveKey(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	item, err := c.store.Get(ctx, c.key)
	if err != nil {
		// Read failures degrade to a miss.
		c.log.WarnContext(ctx, "jwks.cache.read.fail", slog.String("err", err.Error()))
		item = nil
	}
	if item != nil {
		key, err := FindKey(item.Data, kid)
		if err == nil && key != nil {
			return key, nil
		}
		c.log.DebugContext(ctx, "jwks.cache.miss", slog.String("kid", kid))
	}

	doc, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return FindKey(doc, kid)
}

// Invalidate drops the cached document.
func (c *Cached) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, c.key)
}

func (c *Cached) refresh(ctx context.Context) ([]byte, error) {
	v, err, _ := c.group.Do(c.key, func() (any, error) {
		// Shared by every waiter; detached from the first caller's request.
		fetchCtx := context.WithoutCancel(ctx)
		doc, err := c.src.Document(fetchCtx)
		if err != nil {
			return nil, err
		}
		if err := c.store.Set(fetchCtx, c.key, doc, storage.WithTTL(c.ttl)); err != nil {
			c.log.WarnContext(fetchCtx, "jwks.cache.write.fail", slog.String("err", err.Error()))
		}
		return doc, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwks: refresh: %w", err)
	}
	return v.([]byte), nil
}
