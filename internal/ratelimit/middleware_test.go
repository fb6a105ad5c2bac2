package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chatscopehq/chatscope/internal/clientip"
)

func limitedServer(fw *FixedWindow) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return clientip.Middleware(FixedWindowMiddleware(fw)(ok))
}

func TestFixedWindowMiddleware(t *testing.T) {
	handler := limitedServer(NewFixedWindow(2, time.Minute))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/analyze", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("192.0.2.1:1000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}

	rec := do("192.0.2.1:1000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	// A different client is not affected.
	if rec := do("192.0.2.2:1000"); rec.Code != http.StatusOK {
		t.Errorf("independent client status = %d", rec.Code)
	}
}
