package logger

import (
	"log/slog"
	"os"
	"strings"
)

var log *slog.Logger
var logLevel slog.Level

func init() {
	// Parse log level from environment variable
	// Supports: debug, info, warn, error (case-insensitive)
	logLevel = slog.LevelInfo // Default
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		switch strings.ToLower(levelStr) {
		case "debug":
			logLevel = slog.LevelDebug
		case "info":
			logLevel = slog.LevelInfo
		case "warn", "warning":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		}
	}

	// Create JSON handler for production-ready structured logging
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	log = slog.New(handler)

	// Set as default so any code using slog directly gets JSON output
	slog.SetDefault(log)
}

// Info logs an informational message with structured fields
func Info(msg string, args ...any) {
	log.Info(msg, args...)
}

// Warn logs a warning message with structured fields
func Warn(msg string, args ...any) {
	log.Warn(msg, args...)
}

// Error logs an error message with structured fields
func Error(msg string, args ...any) {
	log.Error(msg, args...)
}

// Fatal logs an error message and exits with status 1
func Fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}
