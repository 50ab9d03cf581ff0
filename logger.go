package fixedarena

import (
	"context"
	"log/slog"
	"os"

	"golang.org/x/time/rate"
)

// Logger wraps slog.Logger with arena-specific event helpers.
// This provides structured logging with consistent field names.
//
// Logging is advisory: nothing an arena or vector does depends on whether a
// record was written.
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

// NewRateLimitedLogger creates a Logger that passes at most eventsPerSec
// records below slog.LevelWarn (with the given burst) to handler and drops the
// rest. Warnings and errors are never dropped.
//
// Use it when allocation-level DEBUG output is wanted on a hot path.
func NewRateLimitedLogger(handler slog.Handler, eventsPerSec float64, burst int) *Logger {
	if handler == nil {
		return NoopLogger()
	}
	return NewLogger(&rateLimitedHandler{
		Handler: handler,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSec), burst),
	})
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithArena tags every record with the arena's capacity.
func (l *Logger) WithArena(capacity int) *Logger {
	return &Logger{
		Logger: l.Logger.With("arena_capacity", capacity),
	}
}

// LogAllocate logs an allocation request.
func (l *Logger) LogAllocate(size, offset int, err error) {
	if err != nil {
		l.Warn("allocation failed",
			"size", size,
			"error", err,
		)
		return
	}
	l.Debug("allocated",
		"size", size,
		"offset", offset,
	)
}

// LogRelease logs a release request.
func (l *Logger) LogRelease(offset, size int, err error) {
	if err != nil {
		l.Error("invalid release",
			"offset", offset,
			"size", size,
			"error", err,
		)
		return
	}
	l.Debug("released",
		"offset", offset,
		"size", size,
	)
}

// LogSplit logs a free block being split by an allocation.
func (l *Logger) LogSplit(offset, size, remainderOffset, remainderSize int) {
	l.Debug("split free block",
		"offset", offset,
		"size", size,
		"remainder_offset", remainderOffset,
		"remainder_size", remainderSize,
	)
}

// LogCoalesce logs a released block being merged with free neighbours.
func (l *Logger) LogCoalesce(offset, size int, mergedNext, mergedPrev bool) {
	l.Debug("coalesced free blocks",
		"offset", offset,
		"size", size,
		"merged_next", mergedNext,
		"merged_prev", mergedPrev,
	)
}

// LogLeak logs a block that was still allocated at teardown.
func (l *Logger) LogLeak(offset, size int) {
	l.Warn("memory leak detected: block was not released",
		"offset", offset,
		"size", size,
	)
}

// LogClose logs arena teardown.
func (l *Logger) LogClose(leaks int, err error) {
	if err != nil {
		l.Error("arena close failed",
			"leaks", leaks,
			"error", err,
		)
		return
	}
	l.Debug("arena closed",
		"leaks", leaks,
	)
}

type rateLimitedHandler struct {
	slog.Handler
	limiter *rate.Limiter
}

func (h *rateLimitedHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < slog.LevelWarn && !h.limiter.Allow() {
		return nil
	}
	return h.Handler.Handle(ctx, r)
}

func (h *rateLimitedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &rateLimitedHandler{Handler: h.Handler.WithAttrs(attrs), limiter: h.limiter}
}

func (h *rateLimitedHandler) WithGroup(name string) slog.Handler {
	return &rateLimitedHandler{Handler: h.Handler.WithGroup(name), limiter: h.limiter}
}
