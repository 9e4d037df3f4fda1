package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// ContextKeyAPIKey is the context key for the API key
	ContextKeyAPIKey ContextKey = "api_key"
)

// DefaultAPIKeyHeader is the header the chat platform sends its key in
const DefaultAPIKeyHeader = "x-api-key"

// APIKeyAuth returns middleware that requires an API key header. When secret
// is empty any non-empty key is accepted.
func APIKeyAuth(header, secret string) func(next http.Handler) http.Handler {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip auth for OPTIONS requests (CORS preflight)
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := strings.TrimSpace(r.Header.Get(header))
			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "missing API key")
				return
			}

			if secret != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAPIKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKey returns the API key from context
func GetAPIKey(ctx context.Context) string {
	if key, ok := ctx.Value(ContextKeyAPIKey).(string); ok {
		return key
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
