package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonmw "execjudge/internal/common/http/middleware"

	"github.com/gin-gonic/gin"
)

func newCORSRouter(cfg commonmw.CORSConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(commonmw.CORSMiddleware(cfg))
	router.POST("/api/v1/execution", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestCORSMiddleware(t *testing.T) {
	router := newCORSRouter(commonmw.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://judge.example"},
		MaxAge:         10 * time.Minute,
	})

	cases := []struct {
		name        string
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantMethods bool
	}{
		{name: "no origin", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "allowed origin", method: http.MethodPost, origin: "https://judge.example", wantStatus: http.StatusOK, wantOrigin: "https://judge.example"},
		{name: "allowed preflight", method: http.MethodOptions, origin: "https://judge.example", wantStatus: http.StatusNoContent, wantOrigin: "https://judge.example", wantMethods: true},
		{name: "foreign origin", method: http.MethodPost, origin: "https://evil.example", wantStatus: http.StatusOK},
		{name: "foreign preflight", method: http.MethodOptions, origin: "https://evil.example", wantStatus: http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/v1/execution", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, w.Code)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Fatalf("unexpected allow origin %q", got)
			}
			hasMethods := w.Header().Get("Access-Control-Allow-Methods") != ""
			if hasMethods != tc.wantMethods {
				t.Fatalf("allow methods presence = %v", hasMethods)
			}
			if tc.wantMethods && w.Header().Get("Access-Control-Max-Age") != "600" {
				t.Fatalf("unexpected max age %q", w.Header().Get("Access-Control-Max-Age"))
			}
		})
	}
}

func TestCORSMiddlewareWildcard(t *testing.T) {
	router := newCORSRouter(commonmw.CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execution", nil)
	req.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestCORSMiddlewareWildcardWithCredentials(t *testing.T) {
	router := newCORSRouter(commonmw.CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}, AllowCredentials: true})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/execution", nil)
	req.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://any.example" {
		t.Fatalf("credentialed requests must echo the origin, got %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("missing allow credentials header")
	}
}

func TestCORSMiddlewareDisabled(t *testing.T) {
	router := newCORSRouter(commonmw.CORSConfig{AllowedOrigins: []string{"*"}})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/execution", nil)
	req.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("disabled middleware must not add headers")
	}
}
