// Package chattest provides a scripted Page and a manual Clock for testing
// code built on package chat.
package chattest

import (
	"context"
	"sync"
	"time"

	"github.com/neboloop/browserchat/internal/agents"
)

// Clock is a fake chat.Clock. Sleep returns immediately and advances Now by
// the requested duration, so polling loops run at full speed while still
// observing their own schedule.
type Clock struct {
	mu     sync.Mutex
	start  time.Time
	now    time.Time
	sleeps int
}

// NewClock returns a Clock starting at a fixed instant.
func NewClock() *Clock {
	t := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &Clock{start: t, now: t}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.sleeps++
	return nil
}

// Ticks is the number of Sleep calls so far.
func (c *Clock) Ticks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

// Elapsed is the fake time that has passed since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(c.start)
}

// Call is one recorded Page interaction.
type Call struct {
	Op       string // url, visible, exists, click, type, press, text, count, screenshot
	Selector string
	Arg      string
}

// Page is a scripted chat.Page. Each behavior is a function so a test can
// make the DOM depend on a Clock's ticks or on earlier calls. Nil functions
// behave like an empty page.
type Page struct {
	URLFunc     func() string
	VisibleFunc func(selector string) bool
	// ExistsFunc falls back to VisibleFunc when nil.
	ExistsFunc func(selector string) bool
	TextFunc   func(selector string) string
	// CountFunc falls back to 1 for a visible or existing selector, else 0.
	CountFunc func(selector string) int
	ClickFunc func(selector string) error
	PressFunc func(key string) error

	// ProbeDelay makes every Visible/Exists call take this long (or until
	// ctx is done, which reports not found).
	ProbeDelay time.Duration

	mu    sync.Mutex
	calls []Call
}

func (p *Page) record(c Call) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}

// Calls returns a copy of every recorded call in order.
func (p *Page) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// CallsOf returns the recorded calls with the given op.
func (p *Page) CallsOf(op string) []Call {
	var out []Call
	for _, c := range p.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Queried reports whether any probe (visible or exists) touched selector.
func (p *Page) Queried(selector string) bool {
	for _, c := range p.Calls() {
		if (c.Op == "visible" || c.Op == "exists") && c.Selector == selector {
			return true
		}
	}
	return false
}

func (p *Page) URL() string {
	p.record(Call{Op: "url"})
	if p.URLFunc == nil {
		return ""
	}
	return p.URLFunc()
}

func (p *Page) wait(ctx context.Context) bool {
	if p.ProbeDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(p.ProbeDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *Page) Visible(ctx context.Context, selector string, _ time.Duration) bool {
	p.record(Call{Op: "visible", Selector: selector})
	if !p.wait(ctx) || p.VisibleFunc == nil {
		return false
	}
	return p.VisibleFunc(selector)
}

func (p *Page) Exists(ctx context.Context, selector string, _ time.Duration) bool {
	p.record(Call{Op: "exists", Selector: selector})
	if !p.wait(ctx) {
		return false
	}
	switch {
	case p.ExistsFunc != nil:
		return p.ExistsFunc(selector)
	case p.VisibleFunc != nil:
		return p.VisibleFunc(selector)
	}
	return false
}

func (p *Page) Click(_ context.Context, selector string) error {
	p.record(Call{Op: "click", Selector: selector})
	if p.ClickFunc != nil {
		return p.ClickFunc(selector)
	}
	return nil
}

func (p *Page) Type(_ context.Context, selector, text string) error {
	p.record(Call{Op: "type", Selector: selector, Arg: text})
	return nil
}

func (p *Page) Press(_ context.Context, key string) error {
	p.record(Call{Op: "press", Arg: key})
	if p.PressFunc != nil {
		return p.PressFunc(key)
	}
	return nil
}

func (p *Page) LastText(_ context.Context, selector string) (string, error) {
	p.record(Call{Op: "text", Selector: selector})
	if p.TextFunc == nil {
		return "", nil
	}
	return p.TextFunc(selector), nil
}

func (p *Page) Count(_ context.Context, selector string) int {
	p.record(Call{Op: "count", Selector: selector})
	switch {
	case p.CountFunc != nil:
		return p.CountFunc(selector)
	case p.ExistsFunc != nil && p.ExistsFunc(selector):
		return 1
	case p.VisibleFunc != nil && p.VisibleFunc(selector):
		return 1
	}
	return 0
}

func (p *Page) Screenshot(_ context.Context, path string) error {
	p.record(Call{Op: "screenshot", Arg: path})
	return nil
}

// Set is a selector membership helper for VisibleFunc and friends.
func Set(selectors ...string) func(string) bool {
	m := make(map[string]bool, len(selectors))
	for _, s := range selectors {
		m[s] = true
	}
	return func(sel string) bool { return m[sel] }
}

// EchoPage is a signed-in page for profile that answers every message with
// "echo: " and the last typed text. The completion indicator, if the
// profile has one, shows once anything has been typed. The transcript holds
// one reply and one indicator per message typed.
func EchoPage(profile agents.Profile) *Page {
	p := &Page{}
	typed := func() (string, bool) {
		calls := p.CallsOf("type")
		if len(calls) == 0 {
			return "", false
		}
		return calls[len(calls)-1].Arg, true
	}
	p.URLFunc = func() string { return profile.URL }
	p.VisibleFunc = func(sel string) bool {
		if sel == profile.InputSelectors[0] {
			return true
		}
		if len(profile.CompletionSelectors) > 0 && sel == profile.CompletionSelectors[0] {
			_, ok := typed()
			return ok
		}
		return false
	}
	p.TextFunc = func(sel string) string {
		if sel != profile.ResponseSelectors[0] {
			return ""
		}
		if text, ok := typed(); ok {
			return "echo: " + text
		}
		return ""
	}
	p.CountFunc = func(sel string) int {
		if sel == profile.ResponseSelectors[0] ||
			(len(profile.CompletionSelectors) > 0 && sel == profile.CompletionSelectors[0]) {
			return len(p.CallsOf("type"))
		}
		return 0
	}
	return p
}
