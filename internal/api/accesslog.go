package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/chatscopehq/chatscope/internal/clientip"
)

// Maximum length for error messages in logs
const maxErrorMessageLength = 200

// requestLogger logs HTTP requests in a structured single-line format.
// Requires clientip.Middleware to run first to populate client IP in context.
//
// Log format:
//
//	"METHOD /path HTTP/1.1" from IP - STATUS SIZEb in DURATION | key=value...
//
// 4xx response bodies are echoed (truncated, sanitized) so rejected analyze
// requests can be diagnosed from logs alone. 5xx bodies are not, since they
// may carry internals.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // Default if WriteHeader is never called
		}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)

		clientIP := clientip.FromRequest(r).Primary
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		var extraParts []string

		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			extraParts = append(extraParts, "req="+reqID)
		}

		if lrw.statusCode >= 400 && lrw.statusCode < 500 && len(lrw.body) > 0 {
			if errMsg := extractErrorMessage(lrw.body); errMsg != "" {
				extraParts = append(extraParts, "err="+errMsg)
			}
		}

		// User-Agent last since it can be long; truncate by runes
		if ua := r.Header.Get("User-Agent"); ua != "" {
			ua = sanitizeLogValue(ua)
			if runes := []rune(ua); len(runes) > 100 {
				ua = string(runes[:100]) + "..."
			}
			extraParts = append(extraParts, "ua="+ua)
		}

		extraInfo := ""
		if len(extraParts) > 0 {
			extraInfo = " | " + strings.Join(extraParts, " ")
		}

		log.Printf("\"%s %s %s\" from %s - %d %dB in %v%s",
			r.Method, r.URL.RequestURI(), r.Proto,
			clientIP,
			lrw.statusCode, lrw.bytesWritten, duration,
			extraInfo)
	})
}

// sanitizeLogValue replaces newlines and other control characters so
// response bodies cannot inject fake log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r < 32 {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractErrorMessage extracts the error message from a response body.
// Handles the JSON format {"error": "message"} and plain text.
func extractErrorMessage(body []byte) string {
	var msg string

	var jsonErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &jsonErr); err == nil && jsonErr.Error != "" {
		msg = jsonErr.Error
	} else {
		msg = strings.TrimSpace(string(body))
	}

	msg = sanitizeLogValue(msg)

	runes := []rune(msg)
	if len(runes) > maxErrorMessageLength {
		msg = string(runes[:maxErrorMessageLength]) + "..."
	}

	return msg
}

// loggingResponseWriter wraps http.ResponseWriter to capture status code,
// bytes written, and response body for 4xx errors
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	body         []byte // Captured body for 4xx responses
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.statusCode >= 400 && lrw.statusCode < 500 {
		maxCapture := maxErrorMessageLength + 50
		if len(lrw.body) < maxCapture {
			remaining := maxCapture - len(lrw.body)
			if len(b) <= remaining {
				lrw.body = append(lrw.body, b...)
			} else {
				lrw.body = append(lrw.body, b[:remaining]...)
			}
		}
	}

	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += n
	return n, err
}

// Flush implements http.Flusher for the event stream.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter for middleware compatibility
func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}
