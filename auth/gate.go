package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ggoodman/coffee-shop-go/auth"

// OutcomeAllowed is the decision label recorded for successful checks.
const OutcomeAllowed = "allowed"

// Verifier turns a raw bearer token into a verified Payload. Implementations
// must return an *Error on every failure.
type Verifier interface {
	VerifyAndDecode(ctx context.Context, token string) (Payload, error)
}

// DecisionRecorder observes the outcome of each guarded request. The outcome
// is OutcomeAllowed or the failing error's Kind name.
type DecisionRecorder interface {
	ObserveDecision(permission, outcome string)
}

// Gate composes token extraction, verification and permission enforcement.
// A single Gate is shared by every protected route; per-route permission
// requirements are expressed as Guards.
type Gate struct {
	verifier     Verifier
	log          *slog.Logger
	recorder     DecisionRecorder
	tracer       trace.Tracer
	deniedStatus int
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger used for authorization decisions.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.log = l }
}

// WithDecisionRecorder registers a recorder invoked once per decision.
func WithDecisionRecorder(r DecisionRecorder) Option {
	return func(g *Gate) { g.recorder = r }
}

// WithDeniedStatus sets the HTTP status reported for permission failures
// (PermissionsClaimMissing and PermissionDenied). The default is 401, which
// existing clients depend on; 403 is the semantically precise alternative.
func WithDeniedStatus(status int) Option {
	return func(g *Gate) { g.deniedStatus = status }
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(g *Gate) { g.tracer = tp.Tracer(tracerName) }
}

// NewGate builds a Gate around v.
func NewGate(v Verifier, opts ...Option) *Gate {
	g := &Gate{
		verifier:     v,
		log:          slog.New(slog.DiscardHandler),
		tracer:       otel.Tracer(tracerName),
		deniedStatus: http.StatusUnauthorized,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require returns a Guard enforcing permission. An empty permission still
// demands a verified token carrying a permissions claim.
func (g *Gate) Require(permission string) *Guard {
	return &Guard{gate: g, permission: permission}
}

// Guard is a Gate bound to one required permission.
type Guard struct {
	gate       *Gate
	permission string
}

// Permission returns the permission this guard enforces.
func (gd *Guard) Permission() string { return gd.permission }

// Check runs extract, verify and enforce in order and stops at the first
// failure. The returned error is always an *Error.
func (gd *Guard) Check(r *http.Request) (Payload, error) {
	g := gd.gate
	ctx, span := g.tracer.Start(r.Context(), "auth.authorize",
		trace.WithAttributes(attribute.String("auth.permission", gd.permission)))
	defer span.End()

	payload, err := gd.check(ctx, r)
	if err != nil {
		var ae *Error
		if !errors.As(err, &ae) {
			ae = ErrTokenUnparseable.WithCause(err)
		}
		if ae.Kind == KindPermissionDenied || ae.Kind == KindPermissionsClaimMissing {
			ae = ae.WithStatus(g.deniedStatus)
		}
		span.SetAttributes(attribute.String("auth.outcome", ae.Kind.String()))
		span.SetStatus(codes.Error, ae.Code)
		g.log.InfoContext(ctx, "auth.check.fail",
			slog.String("permission", gd.permission),
			slog.String("kind", ae.Kind.String()),
			slog.String("err", ae.Error()),
		)
		g.observe(gd.permission, ae.Kind.String())
		return nil, ae
	}

	span.SetAttributes(attribute.String("auth.outcome", OutcomeAllowed))
	g.log.DebugContext(ctx, "auth.check.ok",
		slog.String("permission", gd.permission),
		slog.String("sub", payload.Subject()),
	)
	g.observe(gd.permission, OutcomeAllowed)
	return payload, nil
}

func (gd *Guard) check(ctx context.Context, r *http.Request) (Payload, error) {
	tok, err := TokenFromHeader(r.Header)
	if err != nil {
		return nil, err
	}
	payload, err := gd.gate.verifier.VerifyAndDecode(ctx, tok)
	if err != nil {
		return nil, err
	}
	if err := CheckPermission(gd.permission, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func (g *Gate) observe(permission, outcome string) {
	if g.recorder != nil {
		g.recorder.ObserveDecision(permission, outcome)
	}
}

// HandlerFunc is an HTTP handler that reports failures as errors, leaving the
// response encoding to the caller's error boundary.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ProtectedFunc is an operation reachable only through a Guard. It receives
// the verified payload as its first argument.
type ProtectedFunc func(payload Payload, w http.ResponseWriter, r *http.Request) error

// Wrap guards fn. Authorization failures are returned unchanged so the
// boundary can serialize them; fn is never invoked in that case.
func (gd *Guard) Wrap(fn ProtectedFunc) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		payload, err := gd.Check(r)
		if err != nil {
			return err
		}
		r = r.WithContext(ContextWithPayload(r.Context(), payload))
		return fn(payload, w, r)
	}
}

type payloadKey struct{}

// ContextWithPayload returns a child context carrying p.
func ContextWithPayload(ctx context.Context, p Payload) context.Context {
	return context.WithValue(ctx, payloadKey{}, p)
}

// PayloadFromContext returns the payload stored by a Guard, if any.
func PayloadFromContext(ctx context.Context) (Payload, bool) {
	p, ok := ctx.Value(payloadKey{}).(Payload)
	return p, ok
}
