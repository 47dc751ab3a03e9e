package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fumble-backend/internal/analyses"
	"fumble-backend/internal/llm"
	"fumble-backend/internal/services/health"
	"fumble-backend/internal/shared/config"
	"fumble-backend/internal/shared/ratelimit"
	"fumble-backend/internal/usage"
)

type stubLLM struct{ calls int }

func (s *stubLLM) JudgeScreenshot(ctx context.Context, in llm.ScreenshotInput) (string, error) {
	s.calls++
	return `{"outcome":"You fumbled 😭","roast":"Three double texts.","tip":"Wait for a reply."}`, nil
}

func testRouter(t *testing.T, stub *stubLLM) *gin.Engine {
	t.Helper()
	return testRouterWith(t, stub, config.Config{
		Env:                "dev",
		CORSAllowOrigin:    []string{"*"},
		RateLimitPerMinute: 5,
	})
}

func testRouterWith(t *testing.T, stub *stubLLM, cfg config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	usageSvc := usage.NewService(0)
	svc := &analyses.Service{LLM: stub, Usage: usageSvc, Provider: "openai", Model: "gpt-4o-mini"}
	return NewRouter(RouterDeps{
		Config:          cfg,
		AnalysisHandler: analyses.NewHandler(svc),
		UsageHandler:    usage.NewHandler(usageSvc),
		Health:          health.NewService("openai", "gpt-4o-mini", nil),
		Limiter:         ratelimit.New(func() time.Time { return now }),
	})
}

func analyzeRequest(t *testing.T) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "chat.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("\x89PNG\r\n\x1a\nrest-of-image")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestRootBanner(t *testing.T) {
	router := testRouter(t, &stubLLM{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != Banner {
		t.Fatalf("unexpected banner %q", resp.Body.String())
	}
}

func TestHealth(t *testing.T) {
	router := testRouter(t, &stubLLM{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ok"] != true || body["provider"] != "openai" || body["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected health body: %v", body)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestAnalyzeEndToEndAndRateLimit(t *testing.T) {
	stub := &stubLLM{}
	router := testRouter(t, stub)

	for i := 0; i < 5; i++ {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, analyzeRequest(t))
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d expected 200, got %d: %s", i+1, resp.Code, resp.Body.String())
		}
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, analyzeRequest(t))
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if stub.calls != 5 {
		t.Fatalf("expected 5 model calls, got %d", stub.calls)
	}

	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", health.Code)
	}
}

func TestForwardedForIgnoredWithoutTrustedProxies(t *testing.T) {
	stub := &stubLLM{}
	router := testRouter(t, stub)

	codes := make([]int, 0, 8)
	for i := 0; i < 8; i++ {
		req := analyzeRequest(t)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}

	for i, code := range codes {
		want := http.StatusOK
		if i >= 5 {
			want = http.StatusTooManyRequests
		}
		if code != want {
			t.Fatalf("request %d: expected %d, got %d (all: %v)", i+1, want, code, codes)
		}
	}
	if stub.calls != 5 {
		t.Fatalf("expected 5 model calls, got %d", stub.calls)
	}
}

func TestForwardedForHonoredFromTrustedProxy(t *testing.T) {
	stub := &stubLLM{}
	router := testRouterWith(t, stub, config.Config{
		Env:                "production",
		TrustedProxies:     []string{"203.0.113.7"},
		RateLimitPerMinute: 5,
	})

	for i := 0; i < 8; i++ {
		req := analyzeRequest(t)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d from distinct clients: expected 200, got %d", i+1, resp.Code)
		}
	}
}

func TestDevRoutesOnlyInDevEnv(t *testing.T) {
	cases := map[string]int{
		"dev":        http.StatusOK,
		"local":      http.StatusOK,
		"staging":    http.StatusNotFound,
		"production": http.StatusNotFound,
	}
	for env, want := range cases {
		router := testRouterWith(t, &stubLLM{}, config.Config{Env: env})
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/dev/usage/reset", nil))
		if resp.Code != want {
			t.Fatalf("env %s: expected %d, got %d", env, want, resp.Code)
		}
	}
	gin.SetMode(gin.TestMode)
}

func TestMetricsAndNotFound(t *testing.T) {
	router := testRouter(t, &stubLLM{})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK || !bytes.Contains(resp.Body.Bytes(), []byte("fumble_analyses_requested_total")) {
		t.Fatalf("unexpected metrics response: %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "3000": ":3000", ":9000": ":9000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
