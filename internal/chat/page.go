// Package chat is the state-detection and response-completion engine.
//
// Everything here works against the Page capability: a page that can be
// probed for selectors, clicked, typed into and read. The engine never talks
// to a browser driver directly, so every heuristic can be exercised with a
// scripted page and a fake clock.
package chat

import (
	"context"
	"log/slog"
	"time"
)

// Page is the slice of browser capability the engine relies on.
//
// Probe methods absorb driver errors and report "not found"; a selector that
// fails to parse or a page that is mid-navigation is indistinguishable from a
// missing element as far as the heuristics are concerned.
type Page interface {
	// URL returns the current navigation URL.
	URL() string

	// Visible waits up to timeout for selector to match a visible element.
	// A zero timeout checks the current DOM once.
	Visible(ctx context.Context, selector string, timeout time.Duration) bool

	// Exists waits up to timeout for selector to match an attached element.
	Exists(ctx context.Context, selector string, timeout time.Duration) bool

	Click(ctx context.Context, selector string) error

	// Type sends text to the element character by character so the target's
	// own input handlers run.
	Type(ctx context.Context, selector, text string) error

	// Press sends a key chord (e.g. "Enter", "Shift+Enter") to the focused element.
	Press(ctx context.Context, key string) error

	// LastText returns the rendered text of the last element matching selector.
	LastText(ctx context.Context, selector string) (string, error)

	// Count returns how many elements match selector. Errors count as zero.
	Count(ctx context.Context, selector string) int

	// Screenshot writes a PNG of the viewport to path.
	Screenshot(ctx context.Context, path string) error
}

// Clock abstracts time so polling loops can run against a fake scheduler.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return SystemClock
	}
	return c
}

func loggerOrDefault(l *slog.Logger, component string) *slog.Logger {
	if l == nil {
		l = slog.Default()
	}
	return l.With("component", component)
}
