package chat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neboloop/browserchat/internal/agents"
)

// Dispatch defaults.
const (
	DefaultSubmitDelay      = time.Second
	DefaultSendProbeTimeout = time.Second
)

// Dispatcher types a message into the agent's input and submits it.
type Dispatcher struct {
	Clock Clock

	// ProbeTimeout caps the existence check for each input selector.
	ProbeTimeout time.Duration

	// SubmitDelay is how long to wait after the Enter keystroke before
	// clicking a send control as backup.
	SubmitDelay      time.Duration
	SendProbeTimeout time.Duration

	// SnapshotDir receives a screenshot when no input can be found.
	// Empty disables snapshots.
	SnapshotDir string

	Logger *slog.Logger
}

// Send locates the input with a first-match walk over InputSelectors, types
// text, and submits with Enter followed by a send-button click.
//
// Both submission paths fire on purpose. A UI that accepts both may receive
// the message twice; there is no dedup.
func (d *Dispatcher) Send(ctx context.Context, page Page, profile agents.Profile, text string) error {
	clock := clockOrDefault(d.Clock)
	log := loggerOrDefault(d.Logger, "dispatch").With("agent", profile.Name)

	timeout := d.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	input, ok := firstMatch(ctx, profile.InputSelectors, func(ctx context.Context, sel string) bool {
		return page.Exists(ctx, sel, timeout)
	})
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		nf := &InputNotFoundError{Agent: profile.Name, Tried: profile.InputSelectors}
		nf.Snapshot = d.snapshot(ctx, page, profile.Name, clock.Now())
		return nf
	}
	log.Info("input located", "selector", input)

	if err := page.Click(ctx, input); err != nil {
		return fmt.Errorf("focus input %q: %w", input, err)
	}
	if err := typeMessage(ctx, page, input, text); err != nil {
		return fmt.Errorf("type message: %w", err)
	}

	pressErr := page.Press(ctx, "Enter")
	if pressErr != nil {
		log.Warn("enter keystroke failed, relying on send button", "error", pressErr)
	}

	delay := d.SubmitDelay
	if delay <= 0 {
		delay = DefaultSubmitDelay
	}
	if err := clock.Sleep(ctx, delay); err != nil {
		return err
	}

	sendTimeout := d.SendProbeTimeout
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendProbeTimeout
	}
	send, found := firstMatch(ctx, profile.SendSelectors, func(ctx context.Context, sel string) bool {
		return page.Exists(ctx, sel, sendTimeout)
	})
	if !found {
		if pressErr != nil {
			return fmt.Errorf("submit message: %w", pressErr)
		}
		log.Debug("no send control visible after keystroke")
		return nil
	}

	if err := page.Click(ctx, send); err != nil {
		// Usually the button went disabled because the keystroke already submitted.
		log.Debug("backup send click failed", "selector", send, "error", err)
		if pressErr != nil {
			return fmt.Errorf("submit message: %w", pressErr)
		}
		return nil
	}
	log.Info("backup send click", "selector", send)
	return nil
}

// typeMessage types text line by line. Newlines become Shift+Enter so an
// embedded newline does not submit a partial message.
func typeMessage(ctx context.Context, page Page, selector, text string) error {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			if err := page.Press(ctx, "Shift+Enter"); err != nil {
				return err
			}
		}
		if line == "" {
			continue
		}
		if err := page.Type(ctx, selector, line); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) snapshot(ctx context.Context, page Page, agent string, now time.Time) string {
	if d.SnapshotDir == "" {
		return ""
	}
	log := loggerOrDefault(d.Logger, "dispatch")
	if err := os.MkdirAll(d.SnapshotDir, 0o755); err != nil {
		log.Warn("cannot create snapshot dir", "dir", d.SnapshotDir, "error", err)
		return ""
	}
	path := filepath.Join(d.SnapshotDir, fmt.Sprintf("%s-input-not-found-%s.png", agent, now.Format("20060102-150405")))
	if err := page.Screenshot(ctx, path); err != nil {
		log.Warn("diagnostic screenshot failed", "error", err)
		return ""
	}
	return path
}
