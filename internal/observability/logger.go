// Package observability provides the slog logger, Prometheus metrics and
// HTTP middleware.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"csvchat/internal/config"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// NewLogger builds a logger from the log section. A nil writer discards.
func NewLogger(cfg config.LogConfig, writer io.Writer) (*slog.Logger, error) {
	if writer == nil {
		writer = io.Discard
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: true}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	return slog.New(handler).With(slog.String("service", "csvchat")), nil
}

// OpenLogWriter returns the configured log file opened for append, or
// stderr when no file is set. The returned closer is never nil.
func OpenLogWriter(cfg config.LogConfig) (io.Writer, func() error, error) {
	if cfg.File == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, f.Close, nil
}

func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func TraceIDFromContext(ctx context.Context) string {
	value, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}
	return value
}
