// Package logging provides the structured logging hooks the engine calls
// on non-fatal conditions (script preload failures, lifecycle transitions).
// No third-party structured logger appears anywhere in the example pack;
// the precedent this package follows is a small stdlib log.Logger-backed
// JSON emitter, updated here to the standard library's own structured
// logger (log/slog) rather than a hand-rolled encoder.
package logging

import (
	"context"
	"log/slog"
)

// Logger is the structured logging hook the engine depends on.
type Logger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

// Info logs an info-level message with the given fields.
func (s *SlogLogger) Info(msg string, fields map[string]any) {
	s.l.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs(fields)...)
}

// Error logs an error-level message with the given fields.
func (s *SlogLogger) Error(msg string, fields map[string]any) {
	s.l.LogAttrs(context.Background(), slog.LevelError, msg, attrs(fields)...)
}

func attrs(fields map[string]any) []slog.Attr {
	out := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		out = append(out, slog.Any(k, v))
	}
	return out
}

// NoopLogger discards every record. Used as the engine's default so the
// hot path never nil-checks a logger field.
type NoopLogger struct{}

// Info discards msg and fields.
func (NoopLogger) Info(msg string, fields map[string]any) {}

// Error discards msg and fields.
func (NoopLogger) Error(msg string, fields map[string]any) {}
