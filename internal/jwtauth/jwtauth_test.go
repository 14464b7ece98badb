package jwtauth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ggoodman/coffee-shop-go/auth"
	"github.com/ggoodman/coffee-shop-go/auth/authtest"
	"github.com/ggoodman/coffee-shop-go/internal/jwks"
	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer   = "https://coffee.example.auth0.com/"
	testAudience = "coffe"
)

type failingResolver struct{ err error }

func (f failingResolver) ResolveKey(context.Context, string) (*jose.JSONWebKey, error) {
	return nil, f.err
}

func newVerifier(t *testing.T, p *authtest.Provider, mutate ...func(*Config)) *Verifier {
	t.Helper()
	cfg := Config{Issuer: testIssuer, Audience: testAudience}
	for _, m := range mutate {
		m(&cfg)
	}
	v, err := NewVerifier(cfg, jwks.NewStatic(p.KeySet()))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

func expectKind(t *testing.T, err error, want *auth.Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Kind, err)
	}
	var ae *auth.Error
	if !errors.As(err, &ae) || ae.Code != want.Code || ae.Description != want.Description {
		t.Fatalf("expected wire code %q, got %v", want.Code, err)
	}
}

func TestParseUnverifiedHeader(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	tok := p.Sign(t, p.Claims())

	h, err := ParseUnverifiedHeader(tok)
	if err != nil {
		t.Fatalf("ParseUnverifiedHeader: %v", err)
	}
	if h.Kid != "test-key" || h.Alg != "RS256" {
		t.Fatalf("unexpected header %+v", h)
	}
}

func TestParseUnverifiedHeaderMalformed(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	noKid := p.SignWithKeyID(t, "", p.Claims())
	garbageHeader := "%%%." + base64.RawURLEncoding.EncodeToString([]byte(`{}`)) + ".sig"
	notJSON := base64.RawURLEncoding.EncodeToString([]byte("nope")) + ".e30.sig"

	for name, tok := range map[string]string{
		"empty":           "",
		"one segment":     "abc",
		"garbage header":  garbageHeader,
		"header not json": notJSON,
		"no kid":          noKid,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseUnverifiedHeader(tok)
			expectKind(t, err, auth.ErrMalformedToken)
		})
	}
}

func TestVerifyAndDecode_HappyPath(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	tok := p.Sign(t, p.Claims("get:drinks-detail"))

	payload, err := v.VerifyAndDecode(context.Background(), tok)
	if err != nil {
		t.Fatalf("VerifyAndDecode: %v", err)
	}
	if payload.Subject() != "auth0|barista" {
		t.Fatalf("unexpected sub %q", payload.Subject())
	}
	perms, ok := payload.Permissions()
	if !ok || len(perms) != 1 || perms[0] != "get:drinks-detail" {
		t.Fatalf("unexpected permissions %v (present=%v)", perms, ok)
	}
}

func TestVerifyAndDecode_OverHTTP(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	srv := p.Serve(t)
	f, err := jwks.NewHTTPFetcher(srv.URL+authtest.JWKSPath, jwks.AllowInsecure())
	if err != nil {
		t.Fatalf("NewHTTPFetcher: %v", err)
	}
	v, err := NewVerifier(Config{Issuer: testIssuer, Audience: testAudience}, f)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	if _, err := v.VerifyAndDecode(context.Background(), p.Sign(t, p.Claims())); err != nil {
		t.Fatalf("VerifyAndDecode: %v", err)
	}
}

func TestVerifyAndDecode_UnknownKid(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	_, err := v.VerifyAndDecode(context.Background(), p.SignWithKeyID(t, "rotated-away", p.Claims()))
	expectKind(t, err, auth.ErrKeyNotFound)
}

func TestVerifyAndDecode_ResolverFailure(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	boom := errors.New("connection refused")
	v, err := NewVerifier(Config{Issuer: testIssuer, Audience: testAudience}, failingResolver{err: boom})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	_, err = v.VerifyAndDecode(context.Background(), p.Sign(t, p.Claims()))
	expectKind(t, err, auth.ErrKeyNotFound)
	if !errors.Is(err, boom) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
}

func TestVerifyAndDecode_Expired(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	claims := p.Claims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err := v.VerifyAndDecode(context.Background(), p.Sign(t, claims))
	expectKind(t, err, auth.ErrTokenExpired)
}

func TestVerifyAndDecode_ExpiredWithBadSignature(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	impostor := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	claims := impostor.Claims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	_, err := v.VerifyAndDecode(context.Background(), impostor.Sign(t, claims))
	expectKind(t, err, auth.ErrTokenExpired)
}

func TestVerifyAndDecode_Leeway(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p, func(c *Config) { c.Leeway = time.Minute })
	claims := p.Claims()
	claims["exp"] = time.Now().Add(-10 * time.Second).Unix()
	if _, err := v.VerifyAndDecode(context.Background(), p.Sign(t, claims)); err != nil {
		t.Fatalf("expected token within leeway to pass, got %v", err)
	}
}

func TestVerifyAndDecode_FixedClock(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	future := time.Now().Add(2 * time.Hour)
	v := newVerifier(t, p, func(c *Config) { c.Now = func() time.Time { return future } })
	_, err := v.VerifyAndDecode(context.Background(), p.Sign(t, p.Claims()))
	expectKind(t, err, auth.ErrTokenExpired)
}

func TestVerifyAndDecode_WrongAudience(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	claims := p.Claims()
	claims["aud"] = "someone-else"
	_, err := v.VerifyAndDecode(context.Background(), p.Sign(t, claims))
	expectKind(t, err, auth.ErrInvalidClaims)
}

func TestVerifyAndDecode_AudienceArray(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	claims := p.Claims()
	claims["aud"] = []string{"https://coffee.example.auth0.com/userinfo", testAudience}
	if _, err := v.VerifyAndDecode(context.Background(), p.Sign(t, claims)); err != nil {
		t.Fatalf("expected audience array containing %q to pass, got %v", testAudience, err)
	}
}

func TestVerifyAndDecode_WrongIssuer(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	claims := p.Claims()
	claims["iss"] = "https://evil.example.com/"
	_, err := v.VerifyAndDecode(context.Background(), p.Sign(t, claims))
	expectKind(t, err, auth.ErrInvalidClaims)
}

func TestVerifyAndDecode_MissingIssuer(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	claims := p.Claims()
	delete(claims, "iss")
	_, err := v.VerifyAndDecode(context.Background(), p.Sign(t, claims))
	expectKind(t, err, auth.ErrInvalidClaims)
}

func TestVerifyAndDecode_MissingAudience(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	claims := p.Claims()
	delete(claims, "aud")
	_, err := v.VerifyAndDecode(context.Background(), p.Sign(t, claims))
	expectKind(t, err, auth.ErrInvalidClaims)
}

func TestVerifyAndDecode_BadSignature(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	impostor := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	_, err := v.VerifyAndDecode(context.Background(), impostor.Sign(t, impostor.Claims()))
	expectKind(t, err, auth.ErrTokenUnparseable)
}

func TestVerifyAndDecode_DisallowedAlg(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, p.Claims())
	tok.Header["kid"] = p.KeyID
	s, err := tok.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	_, err = v.VerifyAndDecode(context.Background(), s)
	expectKind(t, err, auth.ErrTokenUnparseable)
}

func TestVerifyAndDecode_MalformedClaims(t *testing.T) {
	p := authtest.NewProvider(t, testIssuer, testAudience)
	v := newVerifier(t, p)
	header := strings.SplitN(p.Sign(t, p.Claims()), ".", 2)[0]
	_, err := v.VerifyAndDecode(context.Background(), header+".bm90LWpzb24.c2ln")
	expectKind(t, err, auth.ErrTokenUnparseable)
}

func TestNewVerifierRequiresResolver(t *testing.T) {
	if _, err := NewVerifier(Config{}, nil); err == nil {
		t.Fatal("expected error without resolver")
	}
}

func TestIssuerForDomain(t *testing.T) {
	if got := IssuerForDomain("coffee.example.auth0.com"); got != testIssuer {
		t.Fatalf("unexpected issuer %q", got)
	}
}
