package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ggoodman/coffee-shop-go/auth"
	"github.com/ggoodman/coffee-shop-go/drinks"
	"github.com/ggoodman/coffee-shop-go/drinks/gormstore"
	"github.com/ggoodman/coffee-shop-go/drinks/memory"
	"github.com/ggoodman/coffee-shop-go/drinkshttp"
	"github.com/ggoodman/coffee-shop-go/internal/config"
	"github.com/ggoodman/coffee-shop-go/internal/jwks"
	"github.com/ggoodman/coffee-shop-go/internal/jwtauth"
	"github.com/ggoodman/coffee-shop-go/internal/logctx"
	"github.com/ggoodman/coffee-shop-go/internal/metrics"
	"github.com/ggoodman/coffee-shop-go/internal/wellknown"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 15 * time.Second

type CLI struct {
	Serve      ServeCmd      `cmd:"" default:"1" help:"Serve the drinks API"`
	CheckToken CheckTokenCmd `cmd:"" help:"Verify a bearer token and print its payload"`
}

type ServeCmd struct {
	ResetDB bool `help:"Drop and recreate the drinks table before serving (postgres only)"`
}

func (c *ServeCmd) Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	m := metrics.New(prometheus.NewRegistry())

	gate, closeResolver, err := buildGate(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer closeResolver()

	store, err := openStore(ctx, cfg, logger, c.ResetDB)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []drinkshttp.Option{
		drinkshttp.WithLogger(logger),
		drinkshttp.WithRequestRecorder(m),
		drinkshttp.WithMetricsHandler(m.Handler()),
		drinkshttp.WithRealm(cfg.Realm),
	}
	if cfg.PublicURL != "" {
		opts = append(opts, drinkshttp.WithResourceMetadata(resourceMetadata(cfg)))
	}
	h, err := drinkshttp.New(store, gate, opts...)
	if err != nil {
		return fmt.Errorf("failed to build handler: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("drinks.serve.start", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("drinks.serve.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

type CheckTokenCmd struct {
	Token      string `arg:"" help:"Raw JWT, without the Bearer prefix"`
	Permission string `help:"Permission the token must grant"`
}

func (c *CheckTokenCmd) Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	resolver, closeResolver, err := buildResolver(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer closeResolver()

	v, err := newVerifier(cfg, resolver, logger)
	if err != nil {
		return err
	}
	return checkToken(ctx, v, c.Token, c.Permission, os.Stdout)
}

func newVerifier(cfg config.Config, resolver jwks.Resolver, logger *slog.Logger) (*jwtauth.Verifier, error) {
	v, err := jwtauth.NewVerifier(jwtauth.Config{
		Issuer:      cfg.Issuer(),
		Audience:    cfg.Audience,
		AllowedAlgs: cfg.AllowedAlgs(),
		Leeway:      cfg.Leeway,
	}, resolver, jwtauth.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to build verifier: %w", err)
	}
	return v, nil
}

func buildGate(ctx context.Context, cfg config.Config, logger *slog.Logger, m *metrics.Metrics) (*auth.Gate, func(), error) {
	resolver, closeResolver, err := buildResolver(ctx, cfg, logger, m)
	if err != nil {
		return nil, nil, err
	}
	v, err := newVerifier(cfg, resolver, logger)
	if err != nil {
		closeResolver()
		return nil, nil, err
	}
	gate := auth.NewGate(v,
		auth.WithLogger(logger),
		auth.WithDecisionRecorder(m),
		auth.WithDeniedStatus(cfg.DeniedStatus),
	)
	return gate, closeResolver, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger, reset bool) (drinks.Store, error) {
	if cfg.PostgresDSN == "" {
		if reset {
			logger.Warn("drinks.store.reset.skip", slog.String("reason", "in-memory store"))
		}
		return memory.New(), nil
	}
	store, err := gormstore.Open(ctx, cfg.PostgresDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if reset {
		if err := store.Reset(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to reset store: %w", err)
		}
	}
	return store, nil
}

func resourceMetadata(cfg config.Config) wellknown.ProtectedResourceMetadata {
	var jwksURI string
	if cfg.JWKSCache != config.CacheFile {
		jwksURI = cfg.JWKSLocation()
	}
	return wellknown.NewProtectedResource(cfg.PublicURL, cfg.Issuer(), jwksURI, []string{
		drinkshttp.PermGetDetail,
		drinkshttp.PermPost,
		drinkshttp.PermPatch,
		drinkshttp.PermDelete,
	})
}

func newLogger(cfg config.Config) *slog.Logger {
	lvl, _ := cfg.SlogLevel()
	return slog.New(logctx.Handler{Handler: slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})})
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var cli CLI
	cliCtx := kong.Parse(&cli,
		kong.Name("drinksd"),
		kong.Description("Drinks catalog API guarded by bearer tokens."),
	)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := newLogger(cfg)

	cliCtx.BindTo(ctx, (*context.Context)(nil))
	cliCtx.Bind(cfg)
	cliCtx.Bind(logger)

	if err := cliCtx.Run(); err != nil {
		logger.Error("drinks.run.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

// checkToken verifies token and writes its payload as JSON to out. When
// permission is set the payload must also grant it.
func checkToken(ctx context.Context, v auth.Verifier, token, permission string, out io.Writer) error {
	payload, err := v.VerifyAndDecode(ctx, token)
	if err != nil {
		return err
	}
	if permission != "" {
		if err := auth.CheckPermission(permission, payload); err != nil {
			return err
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
