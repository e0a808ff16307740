package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Option func(*options)

type options struct {
	writer    io.Writer
	format    string
	addSource bool
}

func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithFormat selects "json" or "text" output.
func WithFormat(format string) Option {
	return func(o *options) {
		o.format = strings.ToLower(format)
	}
}

func WithSource() Option {
	return func(o *options) {
		o.addSource = true
	}
}

// New builds the structured logger shared by every component.
func New(level string, opts ...Option) *slog.Logger {
	cfg := options{writer: os.Stderr, format: "text"}
	for _, opt := range opts {
		opt(&cfg)
	}

	handlerOptions := &slog.HandlerOptions{
		Level:     ParseLevel(level),
		AddSource: cfg.addSource,
	}

	var h slog.Handler
	if cfg.format == "json" {
		h = slog.NewJSONHandler(cfg.writer, handlerOptions)
	} else {
		h = slog.NewTextHandler(cfg.writer, handlerOptions)
	}
	return slog.New(h)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDefault returns l, or slog.Default() when l is nil.
func OrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
