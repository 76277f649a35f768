package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/neboloop/browserchat/internal/agents"
)

// AuthState is the detector's verdict. It is derived on every poll and never stored.
type AuthState int

const (
	AuthUnknown AuthState = iota
	AuthAuthenticated
	AuthNotAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case AuthAuthenticated:
		return "AUTHENTICATED"
	case AuthNotAuthenticated:
		return "NOT_AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// DefaultProbeTimeout caps a single selector probe.
const DefaultProbeTimeout = 3 * time.Second

// StateDetector decides whether the page shows a signed-in session.
type StateDetector interface {
	Detect(ctx context.Context, page Page, profile agents.Profile) AuthState
}

// Detector gathers authentication evidence in a fixed order:
//
//  1. login indicators (race) => NOT_AUTHENTICATED
//  2. input controls (race) => AUTHENTICATED
//  3. post-login controls (race) => AUTHENTICATED
//  4. URL patterns, login before chat
//  5. otherwise NOT_AUTHENTICATED
//
// Login evidence is checked first so a cached chat DOM underneath a login
// wall never reads as signed in.
type Detector struct {
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// NewDetector returns a Detector with default probe timeout.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{ProbeTimeout: DefaultProbeTimeout, Logger: logger}
}

// Detect returns the authentication state of page. It only returns
// AuthUnknown when ctx is cancelled mid-detection.
func (d *Detector) Detect(ctx context.Context, page Page, profile agents.Profile) AuthState {
	log := loggerOrDefault(d.Logger, "auth").With("agent", profile.Name)
	timeout := d.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	visible := func(ctx context.Context, sel string) bool {
		return page.Visible(ctx, sel, timeout)
	}

	if sel, ok := raceAny(ctx, profile.LoginIndicatorSelectors, visible); ok {
		log.Debug("login indicator visible", "selector", sel)
		return AuthNotAuthenticated
	}
	if sel, ok := raceAny(ctx, profile.InputSelectors, visible); ok {
		log.Debug("chat input visible", "selector", sel)
		return AuthAuthenticated
	}
	if sel, ok := raceAny(ctx, profile.PostLoginSelectors, visible); ok {
		log.Debug("post-login control visible", "selector", sel)
		return AuthAuthenticated
	}
	if ctx.Err() != nil {
		return AuthUnknown
	}

	url := page.URL()
	if state := classifyURL(url, profile); state != AuthUnknown {
		log.Debug("auth state from url", "url", url, "state", state.String())
		return state
	}

	log.Debug("no authentication evidence, assuming signed out", "url", url)
	return AuthNotAuthenticated
}

// classifyURL maps the navigation URL to an auth state using the profile's
// substring patterns. Login patterns win over chat patterns.
func classifyURL(url string, profile agents.Profile) AuthState {
	u := strings.ToLower(url)
	if u == "" {
		return AuthUnknown
	}
	for _, p := range profile.LoginURLPatterns {
		if p != "" && strings.Contains(u, strings.ToLower(p)) {
			return AuthNotAuthenticated
		}
	}
	for _, p := range profile.ChatURLPatterns {
		if p != "" && strings.Contains(u, strings.ToLower(p)) {
			return AuthAuthenticated
		}
	}
	return AuthUnknown
}
