package kls

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with kls-specific fields.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithThread adds a thread field to the logger.
func (l *Logger) WithThread(id uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("thread", id),
	}
}

// LogSlotDelete logs a failed slot deletion. Successful deletions are
// logged by the registry together with their orphan count.
func (l *Logger) LogSlotDelete(key Key, err error) {
	if err == nil {
		return
	}
	l.Warn("slot delete failed",
		"key", key,
		"error", err,
	)
}

// LogThreadExit logs a completed thread exit.
func (l *Logger) LogThreadExit(slots int, blocks uint64, elapsed time.Duration) {
	l.Debug("thread exited",
		"slots", slots,
		"blocks", blocks,
		"elapsed", elapsed,
	)
}

// LogAllocationFailure logs a rejected arena allocation.
func (l *Logger) LogAllocationFailure(size int, err error) {
	l.Warn("allocation failed",
		"size", size,
		"error", err,
	)
}
