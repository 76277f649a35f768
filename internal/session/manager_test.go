package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/chat/chattest"
	"github.com/neboloop/browserchat/internal/lifecycle"
)

type fakeBrowser struct {
	page   *chattest.Page
	navErr error

	mu        sync.Mutex
	hooks     []func(string)
	navigated []string
	pingErr   error

	closes atomic.Int32
}

func (b *fakeBrowser) Page() chat.Page { return b.page }

func (b *fakeBrowser) Navigate(_ context.Context, url string) error {
	b.mu.Lock()
	b.navigated = append(b.navigated, url)
	b.mu.Unlock()
	return b.navErr
}

func (b *fakeBrowser) OnTerminate(fn func(string)) {
	b.mu.Lock()
	b.hooks = append(b.hooks, fn)
	b.mu.Unlock()
}

func (b *fakeBrowser) fire(reason string) {
	b.mu.Lock()
	hooks := append([]func(string){}, b.hooks...)
	b.mu.Unlock()
	for _, h := range hooks {
		h(reason)
	}
}

func (b *fakeBrowser) setPingErr(err error) {
	b.mu.Lock()
	b.pingErr = err
	b.mu.Unlock()
}

func (b *fakeBrowser) PingPage(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pingErr
}

func (b *fakeBrowser) PingProcess(context.Context) error { return nil }

func (b *fakeBrowser) Close() error {
	b.closes.Add(1)
	return nil
}

type fakeLauncher struct {
	browser  *fakeBrowser
	err      error
	launches atomic.Int32
}

func (l *fakeLauncher) Launch(context.Context, agents.Profile) (Browser, error) {
	l.launches.Add(1)
	if l.err != nil {
		return nil, l.err
	}
	return l.browser, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (e *eventLog) count(ev lifecycle.Event) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, x := range e.events {
		if x == ev {
			n++
		}
	}
	return n
}

type harness struct {
	mgr      *Manager
	launcher *fakeLauncher
	browser  *fakeBrowser
	page     *chattest.Page
	clock    *chattest.Clock
	events   *eventLog
}

func newHarness(t *testing.T, page *chattest.Page, clock *chattest.Clock) *harness {
	t.Helper()
	if clock == nil {
		clock = chattest.NewClock()
	}
	b := &fakeBrowser{page: page}
	l := &fakeLauncher{browser: b}
	ev := &eventLog{}
	bus := lifecycle.New(nil)
	bus.Subscribe(func(e lifecycle.Event, _ lifecycle.SessionEventData) {
		ev.mu.Lock()
		ev.events = append(ev.events, e)
		ev.mu.Unlock()
	})
	mgr := NewManager(Config{
		Agents:   agents.Default(),
		Launcher: l,
		Clock:    clock,
		Events:   bus,
	})
	t.Cleanup(func() { mgr.Close("test done") })
	return &harness{mgr: mgr, launcher: l, browser: b, page: page, clock: clock, events: ev}
}

func profile(t *testing.T, name string) agents.Profile {
	t.Helper()
	p, err := agents.Default().Resolve(name)
	require.NoError(t, err)
	return p
}

// claudePage is a signed-in Claude transcript. The reply to the n-th
// message is "pong" for the first and "pong n" after that. Each reply shows
// up two polls after its message is sent, streams over four polls and then
// gets its own copy button. Earlier replies and copy buttons stay on screen.
func claudePage(t *testing.T) *chattest.Page {
	p := profile(t, agents.Claude)
	const delay, frames = 2, 4

	var (
		mu       sync.Mutex
		lastSent int
		reads    int
	)
	page := &chattest.Page{}
	// state returns the messages sent so far and the reads since the last one.
	state := func(read bool) (sent, since int) {
		mu.Lock()
		defer mu.Unlock()
		sent = len(page.CallsOf("type"))
		if sent != lastSent {
			lastSent, reads = sent, 0
		}
		if read {
			reads++
		}
		return sent, reads
	}
	answer := func(n int) string {
		if n == 1 {
			return "pong"
		}
		return fmt.Sprintf("pong %d", n)
	}
	finished := func(sent, since int) int {
		if sent > 0 && since >= delay+frames {
			return sent
		}
		return max(sent-1, 0)
	}

	page.URLFunc = func() string { return "https://claude.ai/new" }
	page.VisibleFunc = func(sel string) bool {
		switch sel {
		case p.InputSelectors[0]:
			return true
		case p.CompletionSelectors[0]:
			return finished(state(false)) > 0
		}
		return false
	}
	page.CountFunc = func(sel string) int {
		sent, since := state(false)
		switch sel {
		case p.ResponseSelectors[0]:
			if sent > 0 && since > delay {
				return sent
			}
			return max(sent-1, 0)
		case p.CompletionSelectors[0]:
			return finished(sent, since)
		}
		return 0
	}
	page.TextFunc = func(sel string) string {
		if sel != p.ResponseSelectors[0] {
			return ""
		}
		sent, since := state(true)
		if sent == 0 {
			return ""
		}
		if since <= delay {
			if sent == 1 {
				return ""
			}
			return answer(sent - 1)
		}
		full := answer(sent)
		shown := min(since-delay, frames)
		return full[:(len(full)*shown+frames-1)/frames]
	}
	return page
}

func TestStartAuthenticatedClaude(t *testing.T) {
	h := newHarness(t, claudePage(t), nil)
	p := profile(t, agents.Claude)

	s, reply, err := h.mgr.Start(context.Background(), Request{Agent: "Claude", Message: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "pong", reply.Text)
	assert.True(t, reply.Complete)
	assert.Equal(t, 6, reply.Attempts)

	assert.Equal(t, StateKeepAlive, s.State())
	assert.Equal(t, agents.Claude, s.Agent)
	assert.Equal(t, 1, h.mgr.Sessions().Len())
	assert.Equal(t, []string{p.URL}, h.browser.navigated)

	// Input found via the first selector, submitted by keystroke.
	exists := h.page.CallsOf("exists")
	require.NotEmpty(t, exists)
	assert.Equal(t, p.InputSelectors[0], exists[0].Selector)
	assert.False(t, containsOp(exists, p.InputSelectors[1]))
	types := h.page.CallsOf("type")
	require.Len(t, types, 1)
	assert.Equal(t, "ping", types[0].Arg)
	assert.Equal(t, "Enter", h.page.CallsOf("press")[0].Arg)

	assert.Equal(t, 1, h.events.count(lifecycle.EventKeepAlive))
	assert.Zero(t, h.events.count(lifecycle.EventLoginRequired))

	require.True(t, s.Shutdown("done"))
	assert.Equal(t, StateTerminated, s.State())
	assert.Equal(t, int32(1), h.browser.closes.Load())
	assert.Zero(t, h.mgr.Sessions().Len())
	assert.Equal(t, "done", s.Reason())
}

func containsOp(calls []chattest.Call, selector string) bool {
	for _, c := range calls {
		if c.Selector == selector {
			return true
		}
	}
	return false
}

func TestStartWaitsForM365Login(t *testing.T) {
	p := profile(t, agents.M365)
	clock := chattest.NewClock()
	signedIn := func() bool { return clock.Ticks() >= 3 }

	page := &chattest.Page{}
	answered := func() bool { return len(page.CallsOf("type")) > 0 }
	page.URLFunc = func() string { return "https://login.microsoftonline.com/common/oauth2" }
	page.VisibleFunc = func(sel string) bool {
		switch sel {
		case "#i0116":
			return !signedIn()
		case p.InputSelectors[0]:
			return signedIn()
		case p.CompletionSelectors[0]:
			return answered()
		}
		return false
	}
	page.TextFunc = func(sel string) string {
		if sel == p.ResponseSelectors[0] && answered() {
			return "Here is the summary."
		}
		return ""
	}
	h := newHarness(t, page, clock)

	_, reply, err := h.mgr.Start(context.Background(), Request{Agent: "m365", Message: "summarize"})
	require.NoError(t, err)
	assert.Equal(t, "Here is the summary.", reply.Text)

	// One detection per poll; the login indicator is probed in every one.
	loginProbes := 0
	for _, c := range page.CallsOf("visible") {
		if c.Selector == "#i0116" {
			loginProbes++
		}
	}
	assert.Equal(t, 4, loginProbes)
	assert.Equal(t, 1, h.events.count(lifecycle.EventLoginRequired))
	assert.Equal(t, 1, h.events.count(lifecycle.EventLoginComplete))

	types := page.CallsOf("type")
	require.Len(t, types, 1)
	assert.Equal(t, p.InputSelectors[0], types[0].Selector)
}

func TestStartInputNotFoundTearsDown(t *testing.T) {
	p := profile(t, agents.Claude)
	page := &chattest.Page{
		URLFunc:     func() string { return "https://claude.ai/new" },
		VisibleFunc: chattest.Set(p.PostLoginSelectors[0]),
	}
	h := newHarness(t, page, nil)

	s, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "hello"})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, chat.ErrInputNotFound))

	assert.Empty(t, page.CallsOf("press"))
	assert.Empty(t, page.CallsOf("click"))
	assert.Empty(t, page.CallsOf("type"))
	assert.Equal(t, int32(1), h.browser.closes.Load())
	assert.Zero(t, h.mgr.Sessions().Len())
	assert.Equal(t, 1, h.events.count(lifecycle.EventExchangeFailed))
}

func TestStartRejectsBadRequests(t *testing.T) {
	h := newHarness(t, &chattest.Page{}, nil)

	_, _, err := h.mgr.Start(context.Background(), Request{Agent: "gpt", Message: "hi"})
	assert.ErrorIs(t, err, agents.ErrUnknownAgent)

	_, _, err = h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "  \n\t "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	assert.Zero(t, h.launcher.launches.Load())
}

func TestStartLaunchFailure(t *testing.T) {
	h := newHarness(t, &chattest.Page{}, nil)
	h.launcher.err = errors.New("profile locked")

	_, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile locked")
	assert.Zero(t, h.browser.closes.Load())
}

func TestStartNavigationFailure(t *testing.T) {
	h := newHarness(t, &chattest.Page{}, nil)
	h.browser.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")

	_, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNavigation)

	var nav *NavigationError
	require.ErrorAs(t, err, &nav)
	assert.Equal(t, "https://claude.ai/new", nav.URL)
	assert.Equal(t, int32(1), h.browser.closes.Load())
}

func TestStartLoginTimeout(t *testing.T) {
	h := newHarness(t, &chattest.Page{}, nil)

	_, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, chat.ErrLoginTimeout)
	assert.GreaterOrEqual(t, h.clock.Elapsed(), chat.DefaultLoginMaxWait)
	assert.Equal(t, int32(1), h.browser.closes.Load())
}

func TestBrowserCrashMidExchange(t *testing.T) {
	p := profile(t, agents.Claude)
	var b *fakeBrowser
	page := &chattest.Page{VisibleFunc: chattest.Set(p.InputSelectors[0])}
	page.TextFunc = func(string) string {
		if len(page.CallsOf("type")) > 0 {
			b.fire("browser disconnected")
		}
		return ""
	}
	h := newHarness(t, page, nil)
	b = h.browser

	_, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "hi"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProcessCrash)

	var crash *ProcessCrashError
	require.ErrorAs(t, err, &crash)
	assert.Equal(t, "browser disconnected", crash.Reason)
	assert.Equal(t, int32(1), h.browser.closes.Load())
	assert.Zero(t, h.mgr.Sessions().Len())
}

func TestFollowUpReusesSession(t *testing.T) {
	h := newHarness(t, claudePage(t), nil)

	s, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "ping"})
	require.NoError(t, err)

	again, reply, err := h.mgr.FollowUp(context.Background(), s.ID, "ping again")
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, "pong 2", reply.Text)
	assert.True(t, reply.Complete)
	assert.Equal(t, chat.SignalIndicator, reply.Signal)

	_, reply, err = h.mgr.FollowUp(context.Background(), s.ID, "and again")
	require.NoError(t, err)
	assert.Equal(t, "pong 3", reply.Text)
	assert.Equal(t, int32(1), h.launcher.launches.Load())
	assert.Equal(t, StateKeepAlive, s.State())

	types := h.page.CallsOf("type")
	require.Len(t, types, 3)
	assert.Equal(t, "ping again", types[1].Arg)

	s.Shutdown("user closed")
	_, _, err = h.mgr.FollowUp(context.Background(), s.ID, "hello?")
	assert.ErrorIs(t, err, ErrSessionTerminated)

	_, _, err = h.mgr.FollowUp(context.Background(), "no-such-session", "hello?")
	var term *SessionTerminatedError
	require.ErrorAs(t, err, &term)
	assert.Equal(t, "no-such-session", term.SessionID)
}

func TestConcurrentTriggersShutDownOnce(t *testing.T) {
	for i := 0; i < 20; i++ {
		h := newHarness(t, claudePage(t), nil)
		s, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "ping"})
		require.NoError(t, err)

		signals := make(chan os.Signal, 1)
		reasonCh := make(chan string, 1)
		go func() { reasonCh <- s.KeepAlive(signals) }()

		var wg sync.WaitGroup
		start := make(chan struct{})
		wg.Add(3)
		go func() {
			defer wg.Done()
			<-start
			h.browser.fire("browser disconnected")
		}()
		go func() {
			defer wg.Done()
			<-start
			signals <- os.Interrupt
		}()
		go func() {
			defer wg.Done()
			<-start
			s.Shutdown("page closed")
		}()
		close(start)
		wg.Wait()

		select {
		case reason := <-reasonCh:
			assert.NotEmpty(t, reason)
		case <-time.After(5 * time.Second):
			t.Fatal("keep-alive did not return")
		}

		assert.Equal(t, int32(1), h.browser.closes.Load())
		assert.Equal(t, 1, h.events.count(lifecycle.EventShutdownComplete))
		assert.Equal(t, StateTerminated, s.State())
		assert.False(t, s.Shutdown("late"))
	}
}

func TestShutdownRaceManyCallers(t *testing.T) {
	h := newHarness(t, claudePage(t), nil)
	s, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "ping"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var winners atomic.Int32
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Shutdown("race") {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(1), h.browser.closes.Load())
}

func TestLivenessFailureShutsDown(t *testing.T) {
	page := claudePage(t)
	b := &fakeBrowser{page: page}
	mgr := NewManager(Config{
		Agents:           agents.Default(),
		Launcher:         &fakeLauncher{browser: b},
		Clock:            chattest.NewClock(),
		LivenessInterval: 10 * time.Millisecond,
	})
	defer mgr.Close("test done")

	s, _, err := mgr.Start(context.Background(), Request{Agent: "claude", Message: "ping"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateKeepAlive, s.State())

	b.setPingErr(errors.New("Target page, context or browser has been closed"))
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("liveness probe did not shut the session down")
	}
	assert.True(t, strings.HasPrefix(s.Reason(), "liveness check failed (page)"))
	assert.Zero(t, mgr.Sessions().Len())
}

func TestDisconnectInKeepAliveShutsDown(t *testing.T) {
	h := newHarness(t, claudePage(t), nil)
	s, _, err := h.mgr.Start(context.Background(), Request{Agent: "claude", Message: "ping"})
	require.NoError(t, err)

	h.browser.fire("page closed")
	assert.Equal(t, "page closed", s.KeepAlive(nil))
	assert.Zero(t, h.mgr.Sessions().Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "KEEP_ALIVE", StateKeepAlive.String())
	assert.Equal(t, "AWAITING_RESPONSE", StateAwaitingResponse.String())
	assert.Equal(t, "INVALID", State(99).String())
}
