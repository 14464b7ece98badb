package jwks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

const (
	defaultFetchTimeout = 5 * time.Second
	maxDocumentSize     = 1 << 20
)

var _ Resolver = (*HTTPFetcher)(nil)
var _ DocumentSource = (*HTTPFetcher)(nil)

// HTTPFetcher retrieves the key set over HTTPS on every call. It keeps no
// state between calls, so a rotated key is visible to the very next request
// at the cost of one network round trip per verification.
type HTTPFetcher struct {
	url      string
	client   *http.Client
	timeout  time.Duration
	log      *slog.Logger
	recorder FetchRecorder
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*fetcherConfig)

type fetcherConfig struct {
	client   *http.Client
	timeout  time.Duration
	log      *slog.Logger
	recorder FetchRecorder
	insecure bool
}

// WithHTTPClient sets the client used for fetches.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(cfg *fetcherConfig) {
		if c != nil {
			cfg.client = c
		}
	}
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(cfg *fetcherConfig) {
		if d > 0 {
			cfg.timeout = d
		}
	}
}

// WithLogger sets the logger for fetch failures.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(cfg *fetcherConfig) { cfg.log = l }
}

// WithFetchRecorder registers a recorder observing each fetch.
func WithFetchRecorder(r FetchRecorder) FetcherOption {
	return func(cfg *fetcherConfig) { cfg.recorder = r }
}

// AllowInsecure permits plain http key set URLs. Intended for local
// development only.
func AllowInsecure() FetcherOption {
	return func(cfg *fetcherConfig) { cfg.insecure = true }
}

// NewHTTPFetcher returns a fetcher for the JWKS document at rawURL, which must
// use https unless AllowInsecure is given.
func NewHTTPFetcher(rawURL string, opts ...FetcherOption) (*HTTPFetcher, error) {
	cfg := &fetcherConfig{
		client:  http.DefaultClient,
		timeout: defaultFetchTimeout,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("jwks: invalid url %q: %w", rawURL, err)
	}
	switch {
	case u.Scheme == "https":
	case u.Scheme == "http" && cfg.insecure:
	default:
		return nil, fmt.Errorf("jwks: url must use https, got %q", u.Scheme)
	}
	return &HTTPFetcher{
		url:      u.String(),
		client:   cfg.client,
		timeout:  cfg.timeout,
		log:      cfg.log,
		recorder: cfg.recorder,
	}, nil
}

// URL returns the key set location.
func (f *HTTPFetcher) URL() string { return f.url }

// Document performs a single GET of the key set.
func (f *HTTPFetcher) Document(ctx context.Context) ([]byte, error) {
	doc, err := f.fetch(ctx)
	if err != nil {
		f.log.WarnContext(ctx, "jwks.fetch.fail", slog.String("url", f.url), slog.String("err", err.Error()))
		f.observe("error")
		return nil, err
	}
	f.observe("ok")
	return doc, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jwks: fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks: fetch: unexpected status %d", resp.StatusCode)
	}
	doc, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("jwks: read: %w", err)
	}
	if len(doc) > maxDocumentSize {
		return nil, errors.New("jwks: document too large")
	}
	return doc, nil
}

// ResolveKey fetches the key set and returns the first key with kid.
func (f *HTTPFetcher) ResolveKey(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	doc, err := f.Document(ctx)
	if err != nil {
		return nil, err
	}
	return FindKey(doc, kid)
}

func (f *HTTPFetcher) observe(result string) {
	if f.recorder != nil {
		f.recorder.ObserveFetch("http", result)
	}
}
