package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of a fixed-window check. RetryAfter is only
// meaningful when Allowed is false.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// FixedWindow counts requests per key in fixed time windows. A key's
// window resets lazily once it has elapsed; nothing sweeps proactively.
// Instances are independent, so tests can create their own without
// cross-test leakage. Safe for concurrent use.
type FixedWindow struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*windowEntry

	// now is replaceable in tests.
	now func() time.Time
}

type windowEntry struct {
	start time.Time
	count int
}

// NewFixedWindow creates a limiter allowing max requests per window per key.
func NewFixedWindow(max int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		max:     max,
		window:  window,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

// Check records one request for key and reports whether it is allowed.
// When rejected, RetryAfter is the remaining time until the window resets,
// rounded up to a whole second.
func (f *FixedWindow) Check(key string) Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	e, ok := f.entries[key]
	if !ok || now.Sub(e.start) >= f.window {
		f.entries[key] = &windowEntry{start: now, count: 1}
		return Decision{Allowed: true}
	}

	if e.count < f.max {
		e.count++
		return Decision{Allowed: true}
	}

	remaining := e.start.Add(f.window).Sub(now)
	retry := remaining.Truncate(time.Second)
	if retry < remaining {
		retry += time.Second
	}
	if retry < time.Second {
		retry = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retry}
}
