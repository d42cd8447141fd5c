package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shaiso/Questionary/internal/telemetry"
)

func TestLoggingAndActor_RequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry.FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusNoContent)
	})
	h := Chain(Logging(logger), Actor())(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/templates", nil)
	req.Header.Set(HeaderUserID, "7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	handlerLine := lines[0]
	for _, want := range []string{"inside handler", "method=GET", "path=/api/v1/templates", "actor_id=7"} {
		if !strings.Contains(handlerLine, want) {
			t.Errorf("handler log should contain %q, got: %s", want, handlerLine)
		}
	}

	accessLine := lines[1]
	for _, want := range []string{"http request", "method=GET", "status=204"} {
		if !strings.Contains(accessLine, want) {
			t.Errorf("access log should contain %q, got: %s", want, accessLine)
		}
	}
}

func TestActor_InvalidHeader(t *testing.T) {
	called := false
	h := Actor()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if called {
		t.Error("handler should not run")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
