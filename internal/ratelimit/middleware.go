package ratelimit

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/chatscopehq/chatscope/internal/clientip"
	"github.com/chatscopehq/chatscope/internal/logger"
)

// Middleware applies token-bucket smoothing keyed by the composite client
// IP from clientip.Middleware. Used router-wide to blunt bursts; the
// per-endpoint fixed window is the contractual limit.
func Middleware(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientip.FromRequest(r).RateLimitKey

			if !limiter.Allow(r.Context(), key) {
				logger.Ctx(r.Context()).Warn("request rate smoothed", "key", key, "path", r.URL.Path)
				writeLimited(w, 0)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// FixedWindowMiddleware enforces a fixed-window limit per client key and
// answers rejections with 429 plus a Retry-After header in whole seconds.
func FixedWindowMiddleware(fw *FixedWindow) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientip.FromRequest(r).RateLimitKey

			d := fw.Check(key)
			if !d.Allowed {
				seconds := int(d.RetryAfter.Seconds())
				logger.Ctx(r.Context()).Warn("rate limit exceeded",
					"key", key, "path", r.URL.Path, "retry_after_s", seconds)
				writeLimited(w, seconds)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeLimited(w http.ResponseWriter, retryAfterSeconds int) {
	if retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{
		"error": "Rate limit exceeded. Please try again later.",
	})
}
