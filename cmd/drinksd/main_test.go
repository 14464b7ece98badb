package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ggoodman/coffee-shop-go/auth"
	"github.com/ggoodman/coffee-shop-go/auth/authtest"
	"github.com/ggoodman/coffee-shop-go/drinks/memory"
	"github.com/ggoodman/coffee-shop-go/internal/config"
	"github.com/ggoodman/coffee-shop-go/internal/jwks"
	"github.com/stretchr/testify/require"
)

const testDomain = "coffee.example.com"

func testConfig() config.Config {
	return config.Config{
		Domain:           testDomain,
		Audience:         "coffe",
		Algorithms:       "RS256",
		DeniedStatus:     401,
		JWKSCache:        config.CacheNone,
		JWKSCacheTTL:     time.Minute,
		JWKSFetchTimeout: time.Second,
		LogLevel:         "info",
	}
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func writeKeySet(t *testing.T, p *authtest.Provider) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, p.JWKS(t), 0o600))
	return path
}

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("drinksd"))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, kctx
}

func TestParseCommands(t *testing.T) {
	cli, kctx := parse(t, "check-token", "abc.def.ghi", "--permission", "post:drinks")
	require.Equal(t, "check-token <token>", kctx.Command())
	require.Equal(t, "abc.def.ghi", cli.CheckToken.Token)
	require.Equal(t, "post:drinks", cli.CheckToken.Permission)

	cli, kctx = parse(t, "serve", "--reset-db")
	require.Equal(t, "serve", kctx.Command())
	require.True(t, cli.Serve.ResetDB)
}

func TestBuildResolverSelectsMode(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig()
	r, closeFn, err := buildResolver(ctx, cfg, discard(), nil)
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &jwks.HTTPFetcher{}, r)
	require.Equal(t, "https://"+testDomain+"/.well-known/jwks.json", r.(*jwks.HTTPFetcher).URL())

	cfg.JWKSCache = config.CacheMemory
	r, closeMem, err := buildResolver(ctx, cfg, discard(), nil)
	require.NoError(t, err)
	defer closeMem()
	require.IsType(t, &jwks.Cached{}, r)

	cfg.JWKSURL = "http://insecure.example.com/jwks.json"
	_, _, err = buildResolver(ctx, cfg, discard(), nil)
	require.Error(t, err)
}

func TestCheckTokenFromFileKeySet(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := authtest.NewProvider(t, "https://"+testDomain+"/", "coffe")
	cfg := testConfig()
	cfg.JWKSCache = config.CacheFile
	cfg.JWKSFile = writeKeySet(t, p)

	r, closeFn, err := buildResolver(ctx, cfg, discard(), nil)
	require.NoError(t, err)
	defer closeFn()

	v, err := newVerifier(cfg, r, discard())
	require.NoError(t, err)

	var out bytes.Buffer
	tok := p.Sign(t, p.Claims("post:drinks"))
	require.NoError(t, checkToken(ctx, v, tok, "post:drinks", &out))
	require.Contains(t, out.String(), `"sub": "auth0|barista"`)

	out.Reset()
	err = checkToken(ctx, v, tok, "delete:drinks", &out)
	require.True(t, errors.Is(err, auth.ErrPermissionDenied))
	require.Zero(t, out.Len())

	err = checkToken(ctx, v, "garbage", "", &out)
	require.True(t, errors.Is(err, auth.ErrMalformedToken))
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	store, err := openStore(context.Background(), testConfig(), discard(), true)
	require.NoError(t, err)
	defer store.Close()
	require.IsType(t, &memory.Store{}, store)
}

func TestResourceMetadataAdvertisesPermissions(t *testing.T) {
	cfg := testConfig()
	cfg.PublicURL = "https://api.example.com"

	md := resourceMetadata(cfg)
	require.Equal(t, "https://api.example.com", md.Resource)
	require.Equal(t, []string{"https://" + testDomain + "/"}, md.AuthorizationServers)
	require.Equal(t, cfg.JWKSLocation(), md.JwksURI)
	require.Len(t, md.ScopesSupported, 4)

	cfg.JWKSCache = config.CacheFile
	require.Empty(t, resourceMetadata(cfg).JwksURI)
}
