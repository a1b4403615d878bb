package facevault

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with facevault-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithIdentity adds an identity token field to the logger.
func (l *Logger) WithIdentity(token string) *Logger {
	return &Logger{
		Logger: l.Logger.With("identity", token),
	}
}

// WithVersion adds a model version field to the logger.
func (l *Logger) WithVersion(version string) *Logger {
	return &Logger{
		Logger: l.Logger.With("version", version),
	}
}

// LogEnroll logs an enrollment operation.
func (l *Logger) LogEnroll(ctx context.Context, identity string, selected int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "enrollment failed",
			"identity", identity,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "enrollment completed",
			"identity", identity,
			"encodings", selected,
		)
	}
}

// LogBatchEnroll logs a batch enrollment operation.
func (l *Logger) LogBatchEnroll(ctx context.Context, total, committed int, duration time.Duration) {
	if committed < total {
		l.WarnContext(ctx, "batch enrollment completed with failures",
			"total", total,
			"committed", committed,
			"failed", total-committed,
			"duration", duration,
		)
	} else {
		l.InfoContext(ctx, "batch enrollment completed",
			"identities", committed,
			"duration", duration,
		)
	}
}

// LogRemove logs an identity removal.
func (l *Logger) LogRemove(ctx context.Context, tokens []string, records int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "removal failed",
			"identities", len(tokens),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "identities removed",
			"identities", len(tokens),
			"records", records,
		)
	}
}

// LogRefresh logs a model cache refresh.
func (l *Logger) LogRefresh(ctx context.Context, refreshed bool, reason string, count int) {
	if refreshed {
		l.InfoContext(ctx, "model cache refreshed",
			"reason", reason,
			"cached", count,
		)
	} else {
		l.DebugContext(ctx, "model cache refresh skipped",
			"reason", reason,
		)
	}
}
