package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/neboloop/browserchat/internal/agents"
)

// Completion defaults. 240 polls of 500ms is two minutes.
const (
	DefaultResponsePollInterval = 500 * time.Millisecond
	DefaultResponseMaxAttempts  = 240
	DefaultStablePolls          = 6
	DefaultQuietPolls           = 2
	DefaultGracePeriod          = time.Second
)

// Signal names the heuristic that declared a reply finished.
type Signal string

const (
	SignalNone      Signal = ""
	SignalIndicator Signal = "completion-indicator"
	SignalStable    Signal = "stable-text"
	SignalQuiet     Signal = "not-streaming"
)

// Reply is the outcome of waiting for a streamed answer. Complete is false
// when the attempt budget ran out; Text then holds whatever was last seen.
type Reply struct {
	Text     string
	Complete bool
	Attempts int
	Signal   Signal
}

// Completion polls the response area until the reply stops streaming.
type Completion struct {
	Clock        Clock
	PollInterval time.Duration
	MaxAttempts  int

	// StablePolls is the number of consecutive unchanged-length polls that
	// count as finished on their own.
	StablePolls int

	// QuietPolls is the shorter threshold used when no streaming indicator
	// is visible.
	QuietPolls int

	// GracePeriod absorbs trailing DOM updates after a completion signal.
	GracePeriod time.Duration

	Logger *slog.Logger
}

func (c *Completion) withDefaults() Completion {
	o := *c
	o.Clock = clockOrDefault(o.Clock)
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultResponsePollInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultResponseMaxAttempts
	}
	if o.StablePolls <= 0 {
		o.StablePolls = DefaultStablePolls
	}
	if o.QuietPolls <= 0 {
		o.QuietPolls = DefaultQuietPolls
	}
	if o.GracePeriod < 0 {
		o.GracePeriod = 0
	} else if o.GracePeriod == 0 {
		o.GracePeriod = DefaultGracePeriod
	}
	return o
}

// Baseline is what the transcript showed before a message was sent: the
// last reply per response selector and the count of visible completion
// indicators. A reused page still shows the previous reply and its copy
// button, and neither may be mistaken for the new answer.
type Baseline struct {
	replies    map[string]seenReply
	indicators map[string]int
}

type seenReply struct {
	text  string
	count int
}

// Baseline records the current transcript. Take it before dispatching.
func (c *Completion) Baseline(ctx context.Context, page Page, profile agents.Profile) Baseline {
	b := Baseline{replies: map[string]seenReply{}, indicators: map[string]int{}}
	for _, sel := range profile.ResponseSelectors {
		t, err := page.LastText(ctx, sel)
		if err != nil || strings.TrimSpace(t) == "" {
			continue
		}
		b.replies[sel] = seenReply{text: strings.TrimSpace(t), count: page.Count(ctx, sel)}
	}
	for _, sel := range profile.CompletionSelectors {
		if page.Visible(ctx, sel, 0) {
			b.indicators[sel] = page.Count(ctx, sel)
		}
	}
	return b
}

// Await waits for a reply on a page with no earlier transcript.
func (c *Completion) Await(ctx context.Context, page Page, profile agents.Profile) (Reply, error) {
	return c.AwaitAfter(ctx, page, profile, Baseline{})
}

// AwaitAfter polls until one of the completion signals fires on a reply
// newer than base, or MaxAttempts is exhausted. Running out of attempts is
// not an error: the last observed text is returned with Complete=false. The
// only error is ctx cancellation.
func (c *Completion) AwaitAfter(ctx context.Context, page Page, profile agents.Profile, base Baseline) (Reply, error) {
	o := c.withDefaults()
	log := loggerOrDefault(c.Logger, "completion").With("agent", profile.Name)

	var (
		lastText   string
		lastLength int
		stable     int
	)

	for attempt := 1; attempt <= o.MaxAttempts; attempt++ {
		text := extractReply(ctx, page, profile, base)
		if len(text) == lastLength {
			stable++
		} else {
			stable = 0
			lastLength = len(text)
		}
		if text != "" {
			lastText = text
		}

		if text != "" {
			if sig := o.signal(ctx, page, profile, base, stable); sig != SignalNone {
				log.Info("reply complete", "signal", string(sig), "attempt", attempt, "length", len(text))
				if err := o.Clock.Sleep(ctx, o.GracePeriod); err != nil {
					return Reply{Text: lastText, Attempts: attempt}, err
				}
				if final := extractReply(ctx, page, profile, base); final != "" {
					lastText = final
				}
				return Reply{Text: lastText, Complete: true, Attempts: attempt, Signal: sig}, nil
			}
		}

		if attempt == o.MaxAttempts {
			break
		}
		if err := o.Clock.Sleep(ctx, o.PollInterval); err != nil {
			return Reply{Text: lastText, Attempts: attempt}, err
		}
	}

	log.Warn("reply did not settle, returning partial text",
		"attempts", o.MaxAttempts, "length", len(lastText))
	return Reply{Text: lastText, Complete: false, Attempts: o.MaxAttempts}, nil
}

// signal evaluates the three completion heuristics. Any one is enough.
// An indicator that was already visible in the baseline only counts once
// another one has appeared.
func (o Completion) signal(ctx context.Context, page Page, profile agents.Profile, base Baseline, stable int) Signal {
	visibleNow := func(ctx context.Context, sel string) bool {
		return page.Visible(ctx, sel, 0)
	}
	newIndicator := func(ctx context.Context, sel string) bool {
		if !visibleNow(ctx, sel) {
			return false
		}
		before, seen := base.indicators[sel]
		return !seen || page.Count(ctx, sel) > before
	}

	if _, ok := firstMatch(ctx, profile.CompletionSelectors, newIndicator); ok {
		return SignalIndicator
	}
	if stable >= o.StablePolls {
		return SignalStable
	}
	// Without streaming selectors there is no way to tell "not streaming"
	// from "unknown", so the short path stays off.
	if len(profile.StreamingSelectors) > 0 && stable >= o.QuietPolls {
		if _, streaming := firstMatch(ctx, profile.StreamingSelectors, visibleNow); !streaming {
			return SignalQuiet
		}
	}
	return SignalNone
}

// extractReply returns the text of the first response selector that yields
// new non-empty content. Selectors are never concatenated. Text equal to the
// baseline reply is stale unless more replies have appeared since.
func extractReply(ctx context.Context, page Page, profile agents.Profile, base Baseline) string {
	var text string
	firstMatch(ctx, profile.ResponseSelectors, func(ctx context.Context, sel string) bool {
		t, err := page.LastText(ctx, sel)
		if err != nil {
			return false
		}
		t = strings.TrimSpace(t)
		if t == "" {
			return false
		}
		if prev, seen := base.replies[sel]; seen && t == prev.text && page.Count(ctx, sel) <= prev.count {
			return false
		}
		text = t
		return true
	})
	return text
}
