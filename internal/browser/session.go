package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/playwright-community/playwright-go"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/session"
)

var (
	// ErrProfileLocked means another session already owns the agent profile.
	ErrProfileLocked = errors.New("browser profile is in use by another session")

	errPageClosed = errors.New("page is closed")
)

var (
	// Playwright instance (singleton)
	pwOnce     sync.Once
	pwInstance *playwright.Playwright
	pwErr      error
)

func runOptions(cfg *ResolvedConfig) *playwright.RunOptions {
	return &playwright.RunOptions{
		Browsers:            []string{"chromium"},
		SkipInstallBrowsers: !cfg.InstallBrowsers,
	}
}

// getPlaywright returns the singleton Playwright instance, installing the
// driver on first use.
func getPlaywright(cfg *ResolvedConfig) (*playwright.Playwright, error) {
	pwOnce.Do(func() {
		opts := runOptions(cfg)
		if err := playwright.Install(opts); err != nil {
			pwErr = fmt.Errorf("failed to install playwright driver: %w", err)
			return
		}
		pw, err := playwright.Run(opts)
		if err != nil {
			pwErr = fmt.Errorf("failed to start playwright: %w", err)
			return
		}
		pwInstance = pw
	})
	return pwInstance, pwErr
}

// Install downloads the Playwright driver and its Chromium build.
func Install() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

// StopPlaywright stops the driver process if it was started.
func StopPlaywright() error {
	if pwInstance == nil {
		return nil
	}
	return pwInstance.Stop()
}

// Launcher opens persistent contexts, one profile directory per agent.
type Launcher struct {
	cfg    *ResolvedConfig
	logger *slog.Logger
}

func NewLauncher(cfg *ResolvedConfig, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{cfg: cfg, logger: logger.With("component", "browser")}
}

// Launch starts a headful browser on the agent's profile. It fails with
// ErrProfileLocked while another session holds the same profile.
func (l *Launcher) Launch(ctx context.Context, profile agents.Profile) (session.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := l.cfg.UserDataDir(profile.Name)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create user data dir: %w", err)
	}
	lock, err := acquireProfileLock(dir)
	if err != nil {
		return nil, err
	}

	s, err := l.launch(dir, profile.Name)
	if err != nil {
		releaseProfileLock(lock)
		return nil, err
	}
	s.lock = lock
	return s, nil
}

func (l *Launcher) launch(dir, agent string) (*Session, error) {
	pw, err := getPlaywright(l.cfg)
	if err != nil {
		return nil, err
	}

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:   playwright.Bool(false),
		Args:       buildChromeArgs(l.cfg),
		NoViewport: playwright.Bool(true),
		Timeout:    playwright.Float(float64(l.cfg.LaunchTimeout.Milliseconds())),
	}
	switch {
	case l.cfg.Channel != "":
		opts.Channel = playwright.String(l.cfg.Channel)
	default:
		exe, err := FindChromeExecutable(l.cfg.ExecutablePath)
		if err != nil {
			return nil, err
		}
		if exe != nil {
			opts.ExecutablePath = playwright.String(exe.Path)
		} else if !l.cfg.InstallBrowsers {
			return nil, errors.New("no supported browser found (Chrome/Brave/Edge/Chromium); set browser.executable_path or run `browserchat install`")
		}
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	// A persistent context opens with one tab already.
	var pwPage playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		pwPage = pages[0]
	} else if pwPage, err = bctx.NewPage(); err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	s := &Session{
		agent:  agent,
		bctx:   bctx,
		page:   &Page{page: pwPage, actionTimeout: l.cfg.ActionTimeout, typeDelay: l.cfg.TypeDelay},
		cfg:    l.cfg,
		logger: l.logger.With("agent", agent),
	}
	s.setupListeners(pwPage)
	s.logger.Info("browser launched", "user_data_dir", dir)
	return s, nil
}

// Session is one persistent browser context driving a single page.
type Session struct {
	agent  string
	bctx   playwright.BrowserContext
	page   *Page
	cfg    *ResolvedConfig
	lock   *os.File
	logger *slog.Logger

	mu      sync.Mutex
	hooks   []func(reason string)
	closing atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

var _ session.Browser = (*Session)(nil)

func (s *Session) Page() chat.Page { return s.page }

// Navigate loads url and waits for DOMContentLoaded. Chat UIs keep
// long-lived connections open, so "load" and "networkidle" are unreliable.
func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := withContext(ctx, func() (playwright.Response, error) {
		return s.page.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(s.cfg.NavigateTimeout.Milliseconds())),
		})
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *Session) OnTerminate(fn func(reason string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// fire runs the termination hooks on their own goroutine. Playwright
// delivers events on its only dispatch goroutine, and a hook that closes
// the context waits for a reply that goroutine has to deliver.
func (s *Session) fire(reason string) {
	if s.closing.Load() {
		return
	}
	s.mu.Lock()
	hooks := append([]func(string){}, s.hooks...)
	s.mu.Unlock()
	go func() {
		for _, h := range hooks {
			h(reason)
		}
	}()
}

func (s *Session) setupListeners(pwPage playwright.Page) {
	s.bctx.OnClose(func(playwright.BrowserContext) {
		s.fire("browser closed")
	})
	// Persistent contexts usually have no Browser object.
	if b := s.bctx.Browser(); b != nil {
		b.OnDisconnected(func(playwright.Browser) {
			s.fire("browser disconnected")
		})
	}
	pwPage.OnClose(func(playwright.Page) {
		s.fire("page closed")
	})
	pwPage.OnCrash(func(playwright.Page) {
		s.fire("page crashed")
	})
	// Uncaught script errors are routine on these sites; only a crash is fatal.
	pwPage.OnPageError(func(err error) {
		s.logger.Debug("page script error", "error", err)
	})
}

// PingPage evaluates a trivial expression in the page.
func (s *Session) PingPage(ctx context.Context) error {
	if s.page.page.IsClosed() {
		return errPageClosed
	}
	_, err := withContext(ctx, func() (any, error) {
		return s.page.page.Evaluate("() => document.readyState")
	})
	return err
}

// PingProcess makes a round trip to the browser process that does not
// involve the page.
func (s *Session) PingProcess(ctx context.Context) error {
	if b := s.bctx.Browser(); b != nil && !b.IsConnected() {
		return errors.New("browser disconnected")
	}
	_, err := withContext(ctx, func() ([]playwright.Cookie, error) {
		return s.bctx.Cookies()
	})
	return err
}

// Close closes the context, which ends the browser process, and releases
// the profile lock. Termination hooks do not fire for a requested close.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.closeErr = s.bctx.Close()
		releaseProfileLock(s.lock)
		s.logger.Info("browser closed")
	})
	return s.closeErr
}

// withContext runs fn and returns early if ctx ends first. Playwright calls
// are bounded by their own timeouts, so an abandoned call still finishes.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}
