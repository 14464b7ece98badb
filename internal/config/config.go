// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ggoodman/coffee-shop-go/internal/jwks"
	"github.com/ggoodman/coffee-shop-go/internal/jwtauth"
	"github.com/joeshaw/envdecode"
)

// Key set resolver modes selectable with JWKS_CACHE.
const (
	CacheNone    = "none"
	CacheMemory  = "memory"
	CacheRedis   = "redis"
	CacheKeyfunc = "keyfunc"
	CacheFile    = "file"
)

// Config is the complete process configuration. Defaults are provided via
// struct tags.
type Config struct {
	// Addr is the listen address. ENV: DRINKS_ADDR
	Addr string `env:"DRINKS_ADDR,default=:8080"`
	// PublicURL is the externally visible base URL. When set the protected
	// resource metadata document is published. ENV: DRINKS_PUBLIC_URL
	PublicURL string `env:"DRINKS_PUBLIC_URL"`

	// Domain of the identity provider, e.g. "coffee.us.auth0.com". ENV: AUTH0_DOMAIN
	Domain string `env:"AUTH0_DOMAIN,required"`
	// Audience expected in the "aud" claim. ENV: API_AUDIENCE
	Audience string `env:"API_AUDIENCE,default=coffe"`
	// Algorithms is a comma separated list of accepted signing algorithms. ENV: AUTH_ALGORITHMS
	Algorithms string `env:"AUTH_ALGORITHMS,default=RS256"`
	// Leeway tolerated on time based claims. ENV: AUTH_LEEWAY
	Leeway time.Duration `env:"AUTH_LEEWAY,default=0s"`
	// DeniedStatus answered for permission failures, 401 or 403. ENV: AUTH_DENIED_STATUS
	DeniedStatus int `env:"AUTH_DENIED_STATUS,default=401"`
	// Realm advertised in WWW-Authenticate challenges. ENV: AUTH_REALM
	Realm string `env:"AUTH_REALM"`

	// JWKSURL overrides the key set location. ENV: JWKS_URL
	JWKSURL string `env:"JWKS_URL"`
	// JWKSDiscovery resolves the key set location through OIDC discovery. ENV: JWKS_DISCOVERY
	JWKSDiscovery bool `env:"JWKS_DISCOVERY,default=false"`
	// JWKSCache selects the resolver: none, memory, redis, keyfunc or file. ENV: JWKS_CACHE
	JWKSCache string `env:"JWKS_CACHE,default=none"`
	// JWKSCacheTTL bounds how long a cached key set is served. ENV: JWKS_CACHE_TTL
	JWKSCacheTTL time.Duration `env:"JWKS_CACHE_TTL,default=10m"`
	// JWKSFile is the key set path used when JWKS_CACHE=file. ENV: JWKS_FILE
	JWKSFile string `env:"JWKS_FILE"`
	// JWKSFetchTimeout bounds each key set fetch. ENV: JWKS_FETCH_TIMEOUT
	JWKSFetchTimeout time.Duration `env:"JWKS_FETCH_TIMEOUT,default=5s"`

	// RedisAddr like "localhost:6379". ENV: REDIS_ADDR
	RedisAddr string `env:"REDIS_ADDR,default=localhost:6379"`
	// PostgresDSN selects the gorm store; empty keeps drinks in memory. ENV: POSTGRES_DSN
	PostgresDSN string `env:"POSTGRES_DSN"`

	// LogLevel is one of debug, info, warn or error. ENV: LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

// Load decodes the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints envdecode cannot express.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Domain) == "" {
		errs = append(errs, errors.New("AUTH0_DOMAIN is required"))
	}
	if len(c.AllowedAlgs()) == 0 {
		errs = append(errs, errors.New("AUTH_ALGORITHMS must name at least one algorithm"))
	}
	if c.DeniedStatus != http.StatusUnauthorized && c.DeniedStatus != http.StatusForbidden {
		errs = append(errs, fmt.Errorf("AUTH_DENIED_STATUS must be 401 or 403, got %d", c.DeniedStatus))
	}
	if c.PublicURL != "" {
		if u, err := url.Parse(c.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("DRINKS_PUBLIC_URL must be an absolute URL, got %q", c.PublicURL))
		}
	}
	if c.Leeway < 0 {
		errs = append(errs, errors.New("AUTH_LEEWAY must not be negative"))
	}
	switch c.JWKSCache {
	case CacheNone, CacheMemory, CacheRedis, CacheKeyfunc:
	case CacheFile:
		if c.JWKSFile == "" {
			errs = append(errs, errors.New("JWKS_FILE is required when JWKS_CACHE=file"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown JWKS_CACHE %q", c.JWKSCache))
	}
	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Issuer is the expected "iss" claim derived from the domain.
func (c Config) Issuer() string {
	return jwtauth.IssuerForDomain(c.Domain)
}

// AllowedAlgs splits Algorithms on commas.
func (c Config) AllowedAlgs() []string {
	var out []string
	for _, a := range strings.Split(c.Algorithms, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// JWKSLocation returns the explicit key set URL or the provider's default.
// It does not perform discovery.
func (c Config) JWKSLocation() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return jwks.DefaultURL(c.Domain)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}
