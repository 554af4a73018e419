// Package log configures the process-wide slog logger and hands out
// component-tagged children of it.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	global *slog.Logger
	once   sync.Once
)

var levels = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// ParseLevel maps a level name to a slog level, case-insensitively.
// Unknown names mean info.
func ParseLevel(level string) slog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return slog.LevelInfo
}

// Init installs the global logger on stdout and makes it slog's default.
// Only the first call counts.
func Init(level, format string) {
	once.Do(func() {
		global = New(os.Stdout, level, format)
		slog.SetDefault(global)
	})
}

// New builds a logger on w. Format "json", or GO_ENV=production, selects
// JSON output; anything else is logfmt-style text.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(format, "json") || os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// L returns the global logger, initialising it at info level if needed.
func L() *slog.Logger {
	Init("info", "")
	return global
}

// Nop discards everything.
func Nop() *slog.Logger { return slog.New(slog.DiscardHandler) }

// Or tags l, or the global logger when l is nil, with a component name.
func Or(l *slog.Logger, component string) *slog.Logger {
	if l == nil {
		l = L()
	}
	return l.With("component", component)
}

func Info(msg string, args ...any)  { L().Info(msg, args...) }
func Error(msg string, args ...any) { L().Error(msg, args...) }
