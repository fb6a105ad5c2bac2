// Package api hosts the HTTP surface: the streaming analyze endpoint, result
// retrieval, and the middleware stack in front of them.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/chatscopehq/chatscope/internal/clientip"
	"github.com/chatscopehq/chatscope/internal/db"
	"github.com/chatscopehq/chatscope/internal/events"
	"github.com/chatscopehq/chatscope/internal/logger"
	"github.com/chatscopehq/chatscope/internal/ratelimit"
	"github.com/chatscopehq/chatscope/internal/storage"
	"github.com/chatscopehq/chatscope/internal/stream"
)

// Config tunes the HTTP surface. Zero values fall back to defaults.
type Config struct {
	// MaxBodyBytes caps the analyze request body. Oversized bodies get 413.
	MaxBodyBytes int64
	// RateLimitMax / RateLimitWindow define the fixed-window contract on
	// the analyze endpoint.
	RateLimitMax    int
	RateLimitWindow time.Duration
	// SmoothingRPS / SmoothingBurst configure the router-wide token bucket.
	SmoothingRPS   float64
	SmoothingBurst int
	// Model and MaxTokens are passed to the AI stages.
	Model     string
	MaxTokens int
	// HeartbeatInterval overrides the stream keepalive cadence (tests).
	HeartbeatInterval time.Duration
	// AllowedOrigins for CORS. Empty disables cross-origin access.
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 15 << 20
	}
	if c.RateLimitMax <= 0 {
		c.RateLimitMax = 5
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = 10 * time.Minute
	}
	if c.SmoothingRPS <= 0 {
		c.SmoothingRPS = 10
	}
	if c.SmoothingBurst <= 0 {
		c.SmoothingBurst = 20
	}
	if c.Model == "" {
		c.Model = "claude-sonnet-4-5"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 8192
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = stream.DefaultHeartbeatInterval
	}
	return c
}

// Server holds dependencies for API handlers. Database, storage, and the
// event publisher are optional; the analyze stream works without them.
type Server struct {
	ai        AIClient
	db        *db.DB
	storage   *storage.S3Storage
	publisher events.Publisher
	limiter   *ratelimit.FixedWindow
	smoother  *ratelimit.InMemoryRateLimiter
	cfg       Config
}

// NewServer creates a new API server
func NewServer(ai AIClient, database *db.DB, store *storage.S3Storage, publisher events.Publisher, cfg Config) *Server {
	cfg = cfg.withDefaults()
	return &Server{
		ai:        ai,
		db:        database,
		storage:   store,
		publisher: publisher,
		limiter:   ratelimit.NewFixedWindow(cfg.RateLimitMax, cfg.RateLimitWindow),
		smoother:  ratelimit.NewInMemoryRateLimiter(cfg.SmoothingRPS, cfg.SmoothingBurst),
		cfg:       cfg,
	}
}

// Close releases background resources (rate limiter cleanup goroutine).
func (s *Server) Close() {
	s.smoother.Stop()
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(clientip.Middleware)
	r.Use(logger.Middleware)
	r.Use(requestLogger)

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "Content-Encoding"},
			MaxAge:         300,
		}))
	}

	r.Use(responseCompressor().Handler)
	r.Use(decompressMiddleware())

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(validateContentType)
			r.Use(ratelimit.Middleware(s.smoother))
			r.Use(ratelimit.FixedWindowMiddleware(s.limiter))
			r.Post("/analyze", s.handleAnalyze)
		})

		r.Get("/results/{id}", s.handleGetResult)
	})

	return r
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
