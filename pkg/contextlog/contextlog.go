// Package contextlog carries a *slog.Logger through context.Context.
package contextlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type loggerKey struct{}

const (
	DefaultLevel = slog.LevelInfo

	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the process logger built by New.
type Options struct {
	Level  string
	Format string
	Writer io.Writer
}

// New builds the process logger from opts, installs it as the slog default
// and attaches it to ctx. An unknown level falls back to DefaultLevel and an
// unknown format to text.
func New(ctx context.Context, opts Options, attrs ...slog.Attr) context.Context {
	var level slog.Level
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		slog.Default().WarnContext(ctx, "Invalid level, falling back to default",
			slog.String("rawLevel", opts.Level),
			slog.String("default", DefaultLevel.String()),
			slog.Any("error", err),
		)
		level = DefaultLevel
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(opts.Format) {
	case FormatJSON:
		h = slog.NewJSONHandler(w, hopts)
	default:
		h = slog.NewTextHandler(w, hopts)
	}
	if len(attrs) > 0 {
		h = h.WithAttrs(attrs)
	}

	l := slog.New(h)
	slog.SetDefault(l)

	return With(ctx, l)
}

// With returns a new context with the given logger attached.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From retrieves the logger from the context, or the default logger.
func From(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return logger
}

// DiscardLogger returns a logger that discards all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
