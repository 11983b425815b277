// Package logger wraps slog with the helpers and context keys the rest of
// the application logs through.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// ArtworkIDKey is the context key for the artwork being processed
	ArtworkIDKey contextKey = "artwork_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New builds a logger for the given environment: human-readable text with
// debug level in development, JSON elsewhere.
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and artwork_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if artworkID, ok := ctx.Value(ArtworkIDKey).(string); ok && artworkID != "" {
		newLogger = newLogger.WithArtworkID(artworkID)
	}

	return newLogger
}

// WithArtworkID returns a logger scoped to one artwork's lifecycle.
func (l *Logger) WithArtworkID(artworkID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("artwork_id", artworkID)),
	}
}

// HTTPRequest logs one served request at info level.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs a request that failed with a server-side error.
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// GenerationEvent logs a step of the artwork generation pipeline.
func (l *Logger) GenerationEvent(artworkID, step string, success bool, reason string) {
	if success {
		l.Info("generation_event",
			slog.String("artwork_id", artworkID),
			slog.String("step", step),
			slog.Bool("success", success),
		)
	} else {
		l.Warn("generation_event",
			slog.String("artwork_id", artworkID),
			slog.String("step", step),
			slog.Bool("success", success),
			slog.String("reason", reason),
		)
	}
}

// DatabaseError logs a failed database operation.
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded records a throttled client.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
