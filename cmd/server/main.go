package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chatscopehq/chatscope/internal/anthropic"
	"github.com/chatscopehq/chatscope/internal/api"
	"github.com/chatscopehq/chatscope/internal/db"
	"github.com/chatscopehq/chatscope/internal/events"
	"github.com/chatscopehq/chatscope/internal/logger"
	"github.com/chatscopehq/chatscope/internal/storage"
)

var version string

type config struct {
	Port            int           `env:"PORT, default=8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT, default=30s"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY, required"`
	Model           string        `env:"ANTHROPIC_MODEL, default=claude-sonnet-4-5"`
	MaxTokens       int           `env:"ANTHROPIC_MAX_TOKENS, default=8192"`

	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES, default=15728640"`
	RateLimitMax    int           `env:"RATE_LIMIT_MAX, default=5"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW, default=10m"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS"`

	// Optional integrations. Leaving these unset runs the server in
	// stream-only mode: analyses still work, nothing is persisted.
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrateOnStart bool   `env:"MIGRATE_ON_START"`

	S3Endpoint         string `env:"S3_ENDPOINT"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	BucketName         string `env:"BUCKET_NAME"`
	S3UseSSL           bool   `env:"S3_USE_SSL, default=true"`

	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE, default=chatscope.events"`
}

func main() {
	// Start pprof debug server if enabled (for memory/CPU profiling)
	if os.Getenv("ENABLE_PPROF") == "true" {
		go startPprofServer()
	}

	// Initialize OpenTelemetry (sends traces to the OTLP endpoint)
	// Configured via env vars: OTEL_SERVICE_NAME, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS
	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry", "error", err)
		// Non-fatal: continue without tracing if OTEL env vars not set
	} else {
		defer otelShutdown()
	}

	ctx := context.Background()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	// Database is optional. Without it the analyze stream still works,
	// but results are not retrievable after the stream closes.
	var database *db.DB
	if cfg.DatabaseURL != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		database, err = db.ConnectWithRetry(connectCtx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer database.Close()

		if cfg.MigrateOnStart {
			if err := database.Migrate(); err != nil {
				logger.Fatal("failed to run migrations", "error", err)
			}
			logger.Info("database migrations applied")
		}
	} else {
		logger.Info("DATABASE_URL not set, result persistence disabled")
	}

	// S3/MinIO export archiving, also optional.
	var store *storage.S3Storage
	if cfg.S3Endpoint != "" {
		store, err = storage.NewS3Storage(storage.S3Config{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.BucketName,
			UseSSL:          cfg.S3UseSSL,
		})
		if err != nil {
			logger.Fatal("failed to initialize storage", "error", err)
		}
	} else {
		logger.Info("S3_ENDPOINT not set, export archiving disabled")
	}

	var publisher events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal("failed to connect to message broker", "error", err)
		}
		defer publisher.Close()
	} else {
		logger.Info("AMQP_URL not set, completion events disabled")
	}

	ai := anthropic.NewClient(cfg.AnthropicAPIKey)

	server := api.NewServer(ai, database, store, publisher, api.Config{
		MaxBodyBytes:    cfg.MaxBodyBytes,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
		Model:           cfg.Model,
		MaxTokens:       cfg.MaxTokens,
		AllowedOrigins:  cfg.AllowedOrigins,
	})
	defer server.Close()
	router := server.SetupRoutes()

	// Wrap router with OpenTelemetry HTTP instrumentation
	handler := otelhttp.NewHandler(router, "chatscope-server")

	// WriteTimeout stays zero: an SSE response is open for the whole
	// analysis, and a fixed deadline would cut long runs off mid-stream.
	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     handler,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// startPprofServer starts a pprof debug server on localhost:6060.
// Only accessible locally (127.0.0.1), reach it remotely via an SSH or
// platform proxy.
func startPprofServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	mux.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/debug/pprof/allocs", pprof.Handler("allocs"))
	mux.Handle("/debug/pprof/block", pprof.Handler("block"))
	mux.Handle("/debug/pprof/mutex", pprof.Handler("mutex"))

	addr := "127.0.0.1:6060"
	logger.Info("pprof debug server starting", "addr", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("pprof server failed", "error", err)
	}
}
