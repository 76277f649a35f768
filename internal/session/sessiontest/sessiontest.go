// Package sessiontest provides an in-memory browser for driving a
// session.Manager without Playwright.
package sessiontest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/session"
)

// Browser is a scripted session.Browser over a chattest page.
type Browser struct {
	page chat.Page

	mu        sync.Mutex
	hooks     []func(string)
	navigated []string

	closes atomic.Int32
}

func NewBrowser(page chat.Page) *Browser {
	return &Browser{page: page}
}

func (b *Browser) Page() chat.Page { return b.page }

func (b *Browser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	b.navigated = append(b.navigated, url)
	b.mu.Unlock()
	return nil
}

func (b *Browser) OnTerminate(fn func(string)) {
	b.mu.Lock()
	b.hooks = append(b.hooks, fn)
	b.mu.Unlock()
}

// Terminate fires the termination hooks as if the browser died.
func (b *Browser) Terminate(reason string) {
	b.mu.Lock()
	hooks := append([]func(string){}, b.hooks...)
	b.mu.Unlock()
	for _, h := range hooks {
		h(reason)
	}
}

func (b *Browser) PingPage(context.Context) error    { return nil }
func (b *Browser) PingProcess(context.Context) error { return nil }

func (b *Browser) Close() error {
	b.closes.Add(1)
	return nil
}

// Closes is how many times Close was called.
func (b *Browser) Closes() int { return int(b.closes.Load()) }

// Navigated lists every URL passed to Navigate.
func (b *Browser) Navigated() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigated...)
}

// Launcher hands out a fresh Browser per launch, built by NewPage.
type Launcher struct {
	NewPage func(agents.Profile) chat.Page

	mu       sync.Mutex
	browsers []*Browser
}

func (l *Launcher) Launch(ctx context.Context, profile agents.Profile) (session.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := NewBrowser(l.NewPage(profile))
	l.mu.Lock()
	l.browsers = append(l.browsers, b)
	l.mu.Unlock()
	return b, nil
}

// Browsers returns every browser launched so far.
func (l *Launcher) Browsers() []*Browser {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Browser(nil), l.browsers...)
}
