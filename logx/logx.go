// Package logx configures structured logging for the module. It is a thin
// wrapper over log/slog so every component logs through the same handler
// with a component attribute.
package logx

import (
	"io"
	"log/slog"
	"os"
)

// Config controls handler construction. Zero values mean text format at
// info level on stderr without source locations.
type Config struct {
	Level     slog.Level
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
}

// New builds a logger from the config.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(out, opts)
	} else {
		h = slog.NewTextHandler(out, opts)
	}
	return slog.New(h)
}

// Default returns a text logger at info level on stderr.
func Default() *slog.Logger {
	return New(Config{})
}

// Discard returns a logger that drops all records. Tests use it to keep
// output quiet.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ForComponent tags a logger with the component emitting the records.
func ForComponent(log *slog.Logger, name string) *slog.Logger {
	if log == nil {
		log = Default()
	}
	return log.With("component", name)
}
