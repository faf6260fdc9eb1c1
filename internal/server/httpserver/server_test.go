package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(cfg Config) (*Server, *bytes.Buffer) {
	var logs bytes.Buffer
	cfg.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(cfg), &logs
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(Config{Addr: "127.0.0.1:0"})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %q", body["status"])
	}
	if !strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req-") {
		t.Errorf("X-Request-ID = %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestServer_StatusAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("statesnap_up 1\n"))
	})
	s, _ := newTestServer(Config{
		Metrics: metrics,
		Status:  func() any { return map[string]int{"fired": 3} },
	})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"fired":3`) {
		t.Errorf("/status = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Body.String() != "statesnap_up 1\n" {
		t.Errorf("/metrics = %q", rec.Body.String())
	}
}

func TestServer_OptionalRoutes(t *testing.T) {
	s, logs := newTestServer(Config{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(logs.String(), "client error") {
		t.Errorf("404 not logged as client error: %s", logs.String())
	}
}

func TestRequestID_Propagates(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-client")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-client" || rec.Header().Get("X-Request-ID") != "req-client" {
		t.Errorf("request id = %q / %q", seen, rec.Header().Get("X-Request-ID"))
	}
}

func TestRecover(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(logs.String(), "panic recovered") {
		t.Error("panic not logged")
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v", order)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	if got := getClientIP(req); got != "10.0.0.7" {
		t.Errorf("getClientIP() = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "192.0.2.1, 10.0.0.1")
	if got := getClientIP(req); got != "192.0.2.1" {
		t.Errorf("getClientIP() = %q", got)
	}
}

func TestServer_Shutdown(t *testing.T) {
	s, _ := newTestServer(Config{Addr: "127.0.0.1:0"})
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
