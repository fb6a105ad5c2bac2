package logger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey struct{}

// Middleware attaches a request-scoped logger to the context, tagged with
// chi's request ID so every line from one analysis run can be correlated.
// Must sit after middleware.RequestID in the chain.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLog := slog.Default()
		if id := middleware.GetReqID(r.Context()); id != "" {
			reqLog = reqLog.With("req_id", id)
		}
		next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), reqLog)))
	})
}

// Ctx returns the request-scoped logger, or the default logger outside a
// request.
func Ctx(ctx context.Context) *slog.Logger {
	if reqLog, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return reqLog
	}
	return slog.Default()
}

// WithLogger returns a context carrying an enriched logger. The analyze
// handler uses it to tag its detached persistence context with the result
// ID after the stream has opened.
func WithLogger(ctx context.Context, reqLog *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqLog)
}
