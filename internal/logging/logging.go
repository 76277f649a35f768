// Package logging configures the process logger.
//
// Progress goes to stdout as one JSON object per line so a parent process
// can stream it. The printf helpers are kept for call sites that only have
// a message to report.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	disabled atomic.Bool
	level    = new(slog.LevelVar)
)

// Options selects the handler built by New.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// New returns a logger writing to w. Output is suppressed while Disable is in effect.
func New(w io.Writer, opts Options) *slog.Logger {
	level.Set(ParseLevel(opts.Level))
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		h = slog.NewTextHandler(w, hopts)
	} else {
		h = slog.NewJSONHandler(w, hopts)
	}
	return slog.New(&gate{Handler: h})
}

// Setup installs a stdout logger as the slog default and returns it.
func Setup(opts Options) *slog.Logger {
	l := New(os.Stdout, opts)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Disable turns off all logging
func Disable() {
	disabled.Store(true)
}

// Enable turns logging back on
func Enable() {
	disabled.Store(false)
}

// gate drops records while logging is disabled.
type gate struct {
	slog.Handler
}

func (g *gate) Enabled(ctx context.Context, l slog.Level) bool {
	return !disabled.Load() && g.Handler.Enabled(ctx, l)
}

func (g *gate) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &gate{Handler: g.Handler.WithAttrs(attrs)}
}

func (g *gate) WithGroup(name string) slog.Handler {
	return &gate{Handler: g.Handler.WithGroup(name)}
}

// Infof logs a formatted info message
func Infof(format string, v ...any) {
	slog.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) {
	slog.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs a formatted error message
func Errorf(format string, v ...any) {
	slog.Error(fmt.Sprintf(format, v...))
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) {
	slog.Debug(fmt.Sprintf(format, v...))
}
