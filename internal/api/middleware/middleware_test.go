package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"honeypot-lab/internal/config"
	"honeypot-lab/pkg/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetAPIKey(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		method string
		key    string
		want   int
	}{
		{"missing key", "", http.MethodPost, "", http.StatusUnauthorized},
		{"any key without secret", "", http.MethodPost, "anything", http.StatusOK},
		{"matching secret", "s3cret", http.MethodPost, "s3cret", http.StatusOK},
		{"wrong secret", "s3cret", http.MethodPost, "guess", http.StatusUnauthorized},
		{"blank key", "s3cret", http.MethodPost, "   ", http.StatusUnauthorized},
		{"preflight", "s3cret", http.MethodOptions, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/analyze", nil)
			if tt.key != "" {
				req.Header.Set("x-api-key", tt.key)
			}
			rec := httptest.NewRecorder()
			APIKeyAuth("", tt.secret)(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && rec.Header().Get("Content-Type") != "application/json" {
				t.Error("401 is not JSON")
			}
			if tt.want == http.StatusOK && tt.method == http.MethodPost && rec.Body.String() != tt.key {
				t.Errorf("key in context = %q, want %q", rec.Body.String(), tt.key)
			}
		})
	}
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, limit int64, _ time.Duration) (bool, int64, time.Time, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return false, 0, time.Time{}, f.err
	}
	remaining := limit - 1
	if !f.allowed {
		remaining = 0
	}
	return f.allowed, remaining, time.Now().Add(30 * time.Second), nil
}

func TestRateLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, RequestsPerMinute: 10}

	tests := []struct {
		name    string
		limiter *fakeLimiter
		want    int
	}{
		{"allowed", &fakeLimiter{allowed: true}, http.StatusOK},
		{"limited", &fakeLimiter{allowed: false}, http.StatusTooManyRequests},
		{"limiter down", &fakeLimiter{err: errors.New("redis down")}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
			req.RemoteAddr = "10.1.2.3:5555"
			rec := httptest.NewRecorder()
			RateLimiter(tt.limiter, cfg, logger.Nop())(okHandler).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if len(tt.limiter.keys) != 1 || tt.limiter.keys[0] != "ip:10.1.2.3" {
				t.Errorf("limiter keys = %v", tt.limiter.keys)
			}
			if tt.want == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
				t.Error("Retry-After missing")
			}
			if tt.limiter.err == nil && rec.Header().Get("X-RateLimit-Limit") != "10" {
				t.Error("X-RateLimit-Limit missing")
			}
		})
	}
}

func TestRateLimiterKeysByAPIKey(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	h := APIKeyAuth("", "")(RateLimiter(limiter, config.RateLimitConfig{RequestsPerMinute: 5}, logger.Nop())(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
	req.Header.Set("x-api-key", "team-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if len(limiter.keys) != 1 || limiter.keys[0] != "key:1ede44cf4298d9ce" {
		t.Fatalf("limiter keys = %v", limiter.keys)
	}
	if strings.Contains(limiter.keys[0], "team-7") {
		t.Fatalf("raw API key leaked into limiter key %q", limiter.keys[0])
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   zerolog.Level
	}{
		{"/analyze", http.StatusOK, zerolog.InfoLevel},
		{"/health", http.StatusOK, zerolog.DebugLevel},
		{"/ready", http.StatusServiceUnavailable, zerolog.ErrorLevel},
		{"/analyze", http.StatusUnauthorized, zerolog.WarnLevel},
		{"/analyze", http.StatusInternalServerError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := requestLevel(tt.path, tt.status); got != tt.want {
			t.Errorf("requestLevel(%q, %d) = %v, want %v", tt.path, tt.status, got, tt.want)
		}
	}
}

func TestLoggerWritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})

	h := Logger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/analyze", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("no JSON request line: %v (%q)", err, buf.String())
	}
	if entry["level"] != "warn" || entry["status"] != float64(http.StatusTeapot) || entry["path"] != "/analyze" {
		t.Errorf("unexpected entry: %v", entry)
	}
}
