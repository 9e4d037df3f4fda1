package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"honeypot-lab/internal/config"
	"honeypot-lab/pkg/logger"
)

// Limiter counts requests per client in fixed windows
type Limiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error)
}

// RateLimiter returns middleware that implements rate limiting
func RateLimiter(l Limiter, cfg config.RateLimitConfig, log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, resetTime, err := l.CheckRateLimit(
				r.Context(),
				getClientID(r),
				int64(cfg.RequestsPerMinute),
				time.Minute,
			)
			if err != nil {
				// Fail open; the limiter is an optional dependency.
				log.Warn().Err(err).Msg("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				retry := int64(time.Until(resetTime).Seconds())
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientID identifies the caller by API key, falling back to its address.
// RealIP has already rewritten RemoteAddr from the proxy headers. Keys are
// hashed so they never show up in Redis key names.
func getClientID(r *http.Request) string {
	if apiKey := GetAPIKey(r.Context()); apiKey != "" {
		sum := sha256.Sum256([]byte(apiKey))
		return "key:" + hex.EncodeToString(sum[:8])
	}

	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return fmt.Sprintf("ip:%s", ip)
}
