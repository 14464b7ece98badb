package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerAddsContextGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(Handler{slog.NewJSONHandler(&buf, nil)}).With(slog.String("svc", "drinks"))

	ctx := WithRequestData(context.Background(), &RequestData{RequestID: "r-1", Method: "POST", Path: "/drinks"})
	ctx = WithAuthData(ctx, &AuthData{Subject: "auth0|1", Permission: "post:drinks"})
	log.InfoContext(ctx, "http.request.done")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["svc"] != "drinks" {
		t.Fatalf("expected With attrs to survive, got %v", rec)
	}
	req, _ := rec["req"].(map[string]any)
	if req["id"] != "r-1" || req["path"] != "/drinks" {
		t.Fatalf("unexpected req group %v", req)
	}
	a, _ := rec["auth"].(map[string]any)
	if a["sub"] != "auth0|1" || a["permission"] != "post:drinks" {
		t.Fatalf("unexpected auth group %v", a)
	}
}

func TestHandlerWithoutContextData(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(Handler{slog.NewJSONHandler(&buf, nil)})
	log.Info("boot")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := rec["req"]; ok {
		t.Fatal("unexpected req group without request data")
	}
	if _, ok := RequestDataFrom(context.Background()); ok {
		t.Fatal("expected no request data")
	}
}
