// Package ratelimit provides the two limiting layers the API uses: a
// token-bucket smoother applied router-wide and a fixed-window counter
// enforcing the per-endpoint contract.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is the smoothing abstraction, kept as an interface so a
// distributed implementation can replace the in-memory one without
// touching the middleware.
type RateLimiter interface {
	// Allow checks if a request from the given key is allowed.
	Allow(ctx context.Context, key string) bool

	// AllowN checks if N requests from the given key are allowed.
	AllowN(ctx context.Context, key string, n int) bool
}

// InMemoryRateLimiter implements smoothing with per-key token buckets.
// Suitable for single-instance deployments.
type InMemoryRateLimiter struct {
	rate  rate.Limit
	burst int

	limiters   sync.Map // map[string]*rate.Limiter
	lastAccess sync.Map // map[string]time.Time

	cleanupInterval time.Duration
	maxAge          time.Duration
	stopCleanup     chan struct{}
}

// NewInMemoryRateLimiter creates a smoother allowing rps requests per
// second with the given burst per key.
func NewInMemoryRateLimiter(rps float64, burst int) *InMemoryRateLimiter {
	limiter := &InMemoryRateLimiter{
		rate:            rate.Limit(rps),
		burst:           burst,
		cleanupInterval: 5 * time.Minute,
		maxAge:          10 * time.Minute,
		stopCleanup:     make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

// Allow checks if a single request is allowed.
func (l *InMemoryRateLimiter) Allow(ctx context.Context, key string) bool {
	return l.AllowN(ctx, key, 1)
}

// AllowN checks if N requests are allowed.
func (l *InMemoryRateLimiter) AllowN(ctx context.Context, key string, n int) bool {
	limiter := l.getLimiter(key)
	l.lastAccess.Store(key, time.Now().UTC())
	return limiter.AllowN(time.Now().UTC(), n)
}

func (l *InMemoryRateLimiter) getLimiter(key string) *rate.Limiter {
	if limiter, exists := l.limiters.Load(key); exists {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.rate, l.burst)

	// May race with another goroutine creating the same key; the loser's
	// limiter is discarded.
	actual, loaded := l.limiters.LoadOrStore(key, limiter)
	if loaded {
		return actual.(*rate.Limiter)
	}

	l.lastAccess.Store(key, time.Now().UTC())
	return limiter
}

// cleanup periodically drops idle buckets to bound memory.
func (l *InMemoryRateLimiter) cleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupOldLimiters()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *InMemoryRateLimiter) cleanupOldLimiters() {
	cutoff := time.Now().UTC().Add(-l.maxAge)
	var stale []string

	l.lastAccess.Range(func(key, value interface{}) bool {
		if value.(time.Time).Before(cutoff) {
			stale = append(stale, key.(string))
		}
		return true
	})

	for _, key := range stale {
		l.limiters.Delete(key)
		l.lastAccess.Delete(key)
	}
}

// Stop stops the cleanup goroutine.
func (l *InMemoryRateLimiter) Stop() {
	close(l.stopCleanup)
}
