package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"folio/api/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/health", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ok := decodeJSON(t, rr)["ok"]; ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request id")
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("unexpected CORS origin %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	req := newRequest(http.MethodGet, "/api/health", "")
	req.Header.Set("X-Request-ID", "req-123")
	rr := serve(env, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
}

func TestOptionsPreflight(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodOptions, "/api/posts/hello/comments", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("unexpected allowed methods %q", rr.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestReadyEndpoint_Success(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/ready", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	response := decodeJSON(t, rr)
	if status := response["status"]; status != "ready" {
		t.Errorf("expected status=ready, got %v", status)
	}
	checks, ok := response["checks"].(map[string]any)
	if !ok {
		t.Fatalf("expected checks object, got %v", response["checks"])
	}
	dbCheck, ok := checks["database"].(map[string]any)
	if !ok || dbCheck["status"] != "ok" {
		t.Errorf("expected database status=ok, got %v", checks["database"])
	}
	if _, ok := checks["sessions"]; ok {
		t.Error("sessions check should be omitted when sessions share the database")
	}
}

func TestReadyEndpoint_DatabaseFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.pingFn = func(context.Context) error {
		return errors.New("connection refused")
	}
	rr := env.do(t, http.MethodGet, "/api/ready", "", "")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	response := decodeJSON(t, rr)
	if response["ok"] != false || response["status"] != "not_ready" {
		t.Fatalf("unexpected response %v", response)
	}
	dbCheck := response["checks"].(map[string]any)["database"].(map[string]any)
	if dbCheck["error"] != "connection refused" {
		t.Errorf("expected error message, got %v", dbCheck["error"])
	}
}

type failingSessions struct {
	*store.MemoryStore
}

func (failingSessions) Ping(context.Context) error {
	return errors.New("redis unavailable")
}

func TestReadyEndpoint_SessionStoreFailure(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.Sessions = failingSessions{store.NewMemoryStore()} })
	rr := env.do(t, http.MethodGet, "/api/ready", "", "")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	checks := decodeJSON(t, rr)["checks"].(map[string]any)
	if checks["database"].(map[string]any)["status"] != "ok" {
		t.Errorf("database should be healthy: %v", checks["database"])
	}
	if checks["sessions"].(map[string]any)["status"] != "error" {
		t.Errorf("sessions should report an error: %v", checks["sessions"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/health", "", "")
	session := env.signIn(t, "Ada", "ada@example.com")
	env.do(t, http.MethodPost, "/api/posts/hello-world/comments", `{"content":"hi"}`, session.Token)

	rr := env.do(t, http.MethodGet, "/metrics", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`folio_http_requests_total{method="GET",status="200"}`,
		`folio_comment_mutations_total{op="create",outcome="ok"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	expectError(t, env.do(t, http.MethodGet, "/api/nope", "", ""), http.StatusNotFound, "NOT_FOUND")
	expectError(t, env.do(t, http.MethodPatch, "/api/comments/abc", "", ""), http.StatusNotFound, "NOT_FOUND")
}
