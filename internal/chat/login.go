package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/neboloop/browserchat/internal/agents"
)

// Login wait defaults.
const (
	DefaultLoginMaxWait       = 5 * time.Minute
	DefaultLoginPollInterval  = 2 * time.Second
	DefaultLoginProgressEvery = 30 * time.Second
)

// LoginProgress is reported periodically while waiting for a manual login.
type LoginProgress struct {
	Agent     string
	Elapsed   time.Duration
	Remaining time.Duration
	Polls     int
}

// LoginWaiter polls a StateDetector until the page is authenticated.
type LoginWaiter struct {
	Detector         StateDetector
	Clock            Clock
	MaxWait          time.Duration
	PollInterval     time.Duration
	ProgressInterval time.Duration

	// OnLoginRequired, when set, is called once on the first poll that does
	// not find a signed-in page.
	OnLoginRequired func()

	// OnProgress, when set, is called every ProgressInterval of waiting.
	OnProgress func(LoginProgress)
	Logger     *slog.Logger
}

// Wait returns nil as soon as the detector reports AUTHENTICATED, or a
// *LoginTimeoutError once MaxWait has elapsed. The last check happens at
// MaxWait, never after giving up early.
func (w *LoginWaiter) Wait(ctx context.Context, page Page, profile agents.Profile) error {
	clock := clockOrDefault(w.Clock)
	log := loggerOrDefault(w.Logger, "login").With("agent", profile.Name)

	maxWait := w.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultLoginMaxWait
	}
	poll := w.PollInterval
	if poll <= 0 {
		poll = DefaultLoginPollInterval
	}
	every := w.ProgressInterval
	if every <= 0 {
		every = DefaultLoginProgressEvery
	}

	start := clock.Now()
	nextReport := start.Add(every)

	for polls := 1; ; polls++ {
		if w.Detector.Detect(ctx, page, profile) == AuthAuthenticated {
			log.Info("login detected", "polls", polls, "waited", clock.Now().Sub(start).String())
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if polls == 1 {
			log.Info("not logged in, complete sign-in in the browser window", "max_wait", maxWait.String())
			if w.OnLoginRequired != nil {
				w.OnLoginRequired()
			}
		}

		now := clock.Now()
		elapsed := now.Sub(start)
		if elapsed >= maxWait {
			return &LoginTimeoutError{Agent: profile.Name, Waited: elapsed, Polls: polls}
		}

		if !now.Before(nextReport) {
			p := LoginProgress{Agent: profile.Name, Elapsed: elapsed, Remaining: maxWait - elapsed, Polls: polls}
			log.Info("waiting for login", "elapsed", elapsed.Round(time.Second).String(),
				"remaining", p.Remaining.Round(time.Second).String())
			if w.OnProgress != nil {
				w.OnProgress(p)
			}
			for !now.Before(nextReport) {
				nextReport = nextReport.Add(every)
			}
		}

		if err := clock.Sleep(ctx, min(poll, maxWait-elapsed)); err != nil {
			return err
		}
	}
}
