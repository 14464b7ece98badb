package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ggoodman/coffee-shop-go/internal/config"
	"github.com/ggoodman/coffee-shop-go/internal/jwks"
	"github.com/ggoodman/coffee-shop-go/storage"
	memstorage "github.com/ggoodman/coffee-shop-go/storage/memory"
	redisstorage "github.com/ggoodman/coffee-shop-go/storage/redis"
	"github.com/redis/go-redis/v9"
)

const memoryCacheEntries = 16

// buildResolver assembles the key set resolver selected by JWKS_CACHE. The
// returned func releases whatever the resolver holds open.
func buildResolver(ctx context.Context, cfg config.Config, logger *slog.Logger, rec jwks.FetchRecorder) (jwks.Resolver, func(), error) {
	noop := func() {}

	if cfg.JWKSCache == config.CacheFile {
		f, err := jwks.NewFile(ctx, cfg.JWKSFile, logger)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}

	location, err := jwksLocation(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("jwks.location", slog.String("url", location), slog.String("cache", cfg.JWKSCache))

	if cfg.JWKSCache == config.CacheKeyfunc {
		r, err := jwks.NewRefreshing(ctx, location)
		if err != nil {
			return nil, nil, err
		}
		return r, noop, nil
	}

	opts := []jwks.FetcherOption{
		jwks.WithFetchTimeout(cfg.JWKSFetchTimeout),
		jwks.WithLogger(logger),
	}
	if rec != nil {
		opts = append(opts, jwks.WithFetchRecorder(rec))
	}
	fetcher, err := jwks.NewHTTPFetcher(location, opts...)
	if err != nil {
		return nil, nil, err
	}

	var store storage.Storage
	switch cfg.JWKSCache {
	case config.CacheNone:
		return fetcher, noop, nil
	case config.CacheMemory:
		store, err = memstorage.New(memoryCacheEntries)
	case config.CacheRedis:
		store, err = redisstorage.New(redisstorage.Config{
			Client: redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
		})
	default:
		return nil, nil, fmt.Errorf("unknown JWKS_CACHE %q", cfg.JWKSCache)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open key set cache: %w", err)
	}
	cached := jwks.NewCached(fetcher, store, cfg.JWKSCacheTTL, jwks.WithCacheLogger(logger))
	return cached, func() { _ = store.Close() }, nil
}

func jwksLocation(ctx context.Context, cfg config.Config) (string, error) {
	if cfg.JWKSDiscovery && cfg.JWKSURL == "" {
		u, err := jwks.DiscoverURL(ctx, cfg.Issuer())
		if err != nil {
			return "", fmt.Errorf("failed to discover key set: %w", err)
		}
		return u, nil
	}
	return cfg.JWKSLocation(), nil
}
