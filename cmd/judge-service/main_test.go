package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"execjudge/internal/common/ratelimit"
	"execjudge/internal/judge/controller"
	"execjudge/internal/judge/sandbox/engine"
	"execjudge/internal/judge/sandbox/limits"
	"execjudge/internal/judge/service"

	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T, body string, limiter ratelimit.Limiter) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg, err := loadAppConfig(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	svc, err := service.NewService(service.Config{
		Engine:   engine.New(cfg.Judge.Engine),
		Enforcer: limits.NewEnforcer(nil),
		PoolSize: cfg.Worker.PoolSize,
	})
	if err != nil {
		t.Fatalf("new service failed: %v", err)
	}
	server, err := buildHTTPServer(cfg, controller.NewJudgeController(svc, cfg.Judge.Limits), limiter)
	if err != nil {
		t.Fatalf("build server failed: %v", err)
	}
	if server.ReadTimeout != defaultReadTimeout {
		t.Fatalf("unexpected read timeout: %v", server.ReadTimeout)
	}
	return server.Handler
}

func serve(h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	h.ServeHTTP(rec, req)
	return rec
}

const sumRequest = `{"code":"function sum(a, b) { return a + b }","func":"sum","action":"run","timeLimit":1000,"memoryLimit":256,"testCases":[{"input":"1, 2","output":"3"}]}`

func TestServerRoutes(t *testing.T) {
	h := newTestServer(t, "metrics:\n  enabled: true\n", nil)

	rec := serve(h, http.MethodPost, "/api/v1/execution", sumRequest, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"Accepted"`) {
		t.Fatalf("unexpected execution response: %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Trace-Id") == "" {
		t.Fatal("trace header missing")
	}

	rec = serve(h, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "execjudge_") {
		t.Fatalf("metrics not exposed: %d", rec.Code)
	}

	rec = serve(h, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"code":10003`) {
		t.Fatalf("unexpected not found response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestServerMetricsDisabled(t *testing.T) {
	h := newTestServer(t, "metrics:\n  enabled: false\n", nil)
	if rec := serve(h, http.MethodGet, "/metrics", "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics should not be mounted, got %d", rec.Code)
	}
}

func TestServerRateLimit(t *testing.T) {
	limiter := ratelimit.NewTokenBucketLimiter(0.001, 1, time.Minute)
	h := newTestServer(t, "logger:\n  level: error\n", limiter)

	if rec := serve(h, http.MethodPost, "/api/v1/execution", sumRequest, nil); rec.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", rec.Code)
	}
	rec := serve(h, http.MethodPost, "/api/v1/execution", sumRequest, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", rec.Code)
	}
}

func TestServerCORSPreflight(t *testing.T) {
	body := "cors:\n  enabled: true\n  allowedOrigins: [\"https://ide.example\"]\n"
	h := newTestServer(t, body, nil)
	rec := serve(h, http.MethodOptions, "/api/v1/execution", "", map[string]string{"Origin": "https://ide.example"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://ide.example" {
		t.Fatalf("missing allow origin header: %v", rec.Header())
	}
}

func TestServerRejectsBadTrustedProxy(t *testing.T) {
	cfg, err := loadAppConfig(writeConfig(t, "server:\n  trustedProxies: [\"not-an-ip\"]\n"))
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if _, err := buildHTTPServer(cfg, controller.NewJudgeController(nil, cfg.Judge.Limits), nil); err == nil {
		t.Fatal("expected trusted proxy error")
	}
}
