// Package drinkshttp serves the drinks catalog over HTTP. The public summary
// list needs no credentials; every other catalog operation sits behind an
// auth.Guard requiring a specific permission.
package drinkshttp

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/coffee-shop-go/auth"
	"github.com/ggoodman/coffee-shop-go/drinks"
	"github.com/ggoodman/coffee-shop-go/internal/logctx"
	"github.com/ggoodman/coffee-shop-go/internal/wellknown"
	"github.com/google/uuid"
)

// Permissions required by the protected routes.
const (
	PermGetDetail = "get:drinks-detail"
	PermPost      = "post:drinks"
	PermPatch     = "patch:drinks"
	PermDelete    = "delete:drinks"
)

const (
	requestIDHeader = "X-Request-Id"
	maxBodyBytes    = 1 << 20
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// RequestRecorder observes every served request. route is the matched
// ServeMux pattern, empty for unmatched requests.
type RequestRecorder interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Handler is the catalog HTTP API.
type Handler struct {
	store    drinks.Store
	gate     *auth.Gate
	log      *slog.Logger
	recorder RequestRecorder
	realm    string
	mux      *http.ServeMux

	metadata    *wellknown.ProtectedResourceMetadata
	metadataURL string
}

// Option configures the Handler.
type Option func(*newConfig)

type newConfig struct {
	logger         *slog.Logger
	recorder       RequestRecorder
	metricsHandler http.Handler
	realm          string
	metadata       *wellknown.ProtectedResourceMetadata
}

// WithLogger sets the logger. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *newConfig) { c.logger = l }
}

// WithRequestRecorder registers a recorder observing every request.
func WithRequestRecorder(r RequestRecorder) Option {
	return func(c *newConfig) { c.recorder = r }
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(c *newConfig) { c.metricsHandler = h }
}

// WithRealm sets the realm advertised in WWW-Authenticate challenges. The
// attribute is omitted when empty.
func WithRealm(realm string) Option {
	return func(c *newConfig) { c.realm = realm }
}

// WithResourceMetadata publishes md at the well-known protected resource
// path and references it from every Bearer challenge.
func WithResourceMetadata(md wellknown.ProtectedResourceMetadata) Option {
	return func(c *newConfig) { c.metadata = &md }
}

// New builds the catalog API over store, guarding protected routes with gate.
func New(store drinks.Store, gate *auth.Gate, opts ...Option) (*Handler, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if gate == nil {
		return nil, errors.New("gate is required")
	}
	cfg := &newConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	h := &Handler{
		store:    store,
		gate:     gate,
		log:      cfg.logger,
		recorder: cfg.recorder,
		realm:    cfg.realm,
		metadata: cfg.metadata,
	}
	if h.metadata != nil {
		h.metadataURL = h.metadata.DocumentURL()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /drinks", h.boundary(h.handleListDrinks))
	mux.HandleFunc("GET /drinks-detail", h.protect(PermGetDetail, h.handleListDrinkDetails))
	mux.HandleFunc("POST /drinks", h.protect(PermPost, h.handleCreateDrink))
	mux.HandleFunc("PATCH /drinks/{id}", h.protect(PermPatch, h.handleUpdateDrink))
	mux.HandleFunc("DELETE /drinks/{id}", h.protect(PermDelete, h.handleDeleteDrink))
	mux.HandleFunc("GET /healthz", h.handleHealth)
	if cfg.metricsHandler != nil {
		mux.Handle("GET /metrics", cfg.metricsHandler)
	}
	if h.metadata != nil {
		mux.HandleFunc("GET "+wellknown.Path, h.handleResourceMetadata)
		mux.HandleFunc("GET "+wellknown.Path+"/", h.handleResourceMetadata)
	}
	mux.HandleFunc("OPTIONS /", h.handleOptions)
	mux.HandleFunc("/", h.handleNotFound)
	h.mux = mux
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := uuid.NewString()
	ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
		RequestID:  reqID,
		Method:     r.Method,
		UserAgent:  r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
		Path:       r.URL.Path,
	})
	r = r.WithContext(ctx)

	setCORSHeaders(w.Header())
	w.Header().Set(requestIDHeader, reqID)

	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	_, route := h.mux.Handler(r)
	if route == "/" {
		route = ""
	}
	h.mux.ServeHTTP(sw, r)

	elapsed := time.Since(start)
	h.log.InfoContext(ctx, "http.request.done",
		slog.Int("status", sw.status),
		slog.String("route", route),
		slog.Duration("duration", elapsed),
	)
	if h.recorder != nil {
		h.recorder.ObserveRequest(r.Method, route, sw.status, elapsed)
	}
}

// boundary adapts an error-returning handler, serializing any error.
func (h *Handler) boundary(fn auth.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.writeError(w, r, err)
		}
	}
}

// protect guards fn with permission and attaches the verified caller to the
// logging context.
func (h *Handler) protect(permission string, fn auth.ProtectedFunc) http.HandlerFunc {
	guarded := h.gate.Require(permission).Wrap(func(p auth.Payload, w http.ResponseWriter, r *http.Request) error {
		r = r.WithContext(logctx.WithAuthData(r.Context(), &logctx.AuthData{
			Subject:    p.Subject(),
			Permission: permission,
		}))
		return fn(p, w, r)
	})
	return h.boundary(guarded)
}

func setCORSHeaders(hdr http.Header) {
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	hdr.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
}

// handleOptions answers CORS preflight requests for every path.
func (h *Handler) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleResourceMetadata serves the OAuth 2.0 Protected Resource Metadata
// document.
func (h *Handler) handleResourceMetadata(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Vary", "Origin")
	writeJSON(w, http.StatusOK, h.metadata)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, "")
}

// statusWriter captures the status code written by downstream handlers.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
