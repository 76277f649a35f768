package svc

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/browser"
	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/config"
	"github.com/neboloop/browserchat/internal/db"
	"github.com/neboloop/browserchat/internal/lifecycle"
	"github.com/neboloop/browserchat/internal/notify"
	"github.com/neboloop/browserchat/internal/session"
)

type ServiceContext struct {
	Config  config.Config
	DataDir string // Root data directory (profiles, database, diagnostics)
	Logger  *slog.Logger

	Agents   *agents.Registry
	Browser  *browser.ResolvedConfig
	Launcher session.Launcher
	Events   *lifecycle.Manager
	Sessions *session.Manager
	Limiter  *AgentLimiter

	DB *db.Store // nil until OpenDB
}

// Option customizes a ServiceContext before its session manager is built.
type Option func(*options)

type options struct {
	launcher session.Launcher
	clock    chat.Clock
	notifier notify.Sender
}

// WithLauncher replaces the Playwright launcher.
func WithLauncher(l session.Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// WithClock drives the chat engine from clock instead of wall time.
func WithClock(clock chat.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithNotifier replaces the desktop notifier used for sign-in prompts.
func WithNotifier(send notify.Sender) Option {
	return func(o *options) { o.notifier = send }
}

// NewServiceContext wires the agent catalog, browser launcher and session
// manager from c. The agents file, when present, overlays the built-in catalog.
func NewServiceContext(c config.Config, dataDir string, logger *slog.Logger, opts ...Option) (*ServiceContext, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c.ResolvePaths(dataDir)

	registry := agents.Default()
	if err := registry.LoadFile(c.Agents.File); err != nil {
		return nil, fmt.Errorf("failed to load agents: %w", err)
	}

	bcfg := c.Browser
	if bcfg.ProfileRoot == "" && dataDir != "" {
		bcfg.ProfileRoot = browserProfileRoot(dataDir)
	}
	resolved := browser.ResolveConfig(bcfg)

	launcher := o.launcher
	if launcher == nil {
		launcher = browser.NewLauncher(resolved, logger)
	}

	events := lifecycle.New(logger)
	if c.IsLoginNotifyEnabled() {
		notify.LoginPrompts(events, o.notifier, logger)
	}
	e := c.Engine
	sessions := session.NewManager(session.Config{
		Agents:   registry,
		Launcher: launcher,
		Detector: &chat.Detector{ProbeTimeout: e.ProbeTimeout, Logger: logger},
		Login: chat.LoginWaiter{
			MaxWait:          e.LoginMaxWait,
			PollInterval:     e.LoginPollInterval,
			ProgressInterval: e.LoginProgressInterval,
		},
		Dispatcher: chat.Dispatcher{
			ProbeTimeout: e.ProbeTimeout,
			SubmitDelay:  e.SubmitDelay,
			SnapshotDir:  e.SnapshotDir,
		},
		Completion: chat.Completion{
			PollInterval: e.ResponsePollInterval,
			MaxAttempts:  e.ResponseMaxAttempts,
			StablePolls:  e.StablePolls,
			QuietPolls:   e.QuietPolls,
			GracePeriod:  e.GracePeriod,
		},
		Clock:            o.clock,
		LivenessInterval: e.LivenessInterval,
		Events:           events,
		Logger:           logger,
	})

	return &ServiceContext{
		Config:   c,
		DataDir:  dataDir,
		Logger:   logger,
		Agents:   registry,
		Browser:  resolved,
		Launcher: launcher,
		Events:   events,
		Sessions: sessions,
		Limiter:  NewAgentLimiter(c.Server.MaxConcurrentPerAgent),
	}, nil
}

// OpenDB opens the exchange database at Config.Database.SQLitePath.
func (svc *ServiceContext) OpenDB(ctx context.Context) error {
	store, err := db.NewSQLite(ctx, svc.Config.Database.SQLitePath)
	if err != nil {
		return err
	}
	svc.DB = store
	return nil
}

// Close shuts down every live session and releases the database.
func (svc *ServiceContext) Close() {
	svc.Sessions.Close("service stopped")
	if svc.DB != nil {
		if err := svc.DB.Close(); err != nil {
			svc.Logger.Warn("failed to close database", "error", err)
		}
	}
	if err := browser.StopPlaywright(); err != nil {
		svc.Logger.Warn("failed to stop playwright", "error", err)
	}
}

// AgentLimiter bounds the number of concurrent exchanges per agent.
type AgentLimiter struct {
	size int64
	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

func NewAgentLimiter(size int64) *AgentLimiter {
	if size <= 0 {
		size = 1
	}
	return &AgentLimiter{size: size, sems: make(map[string]*semaphore.Weighted)}
}

func (l *AgentLimiter) sem(agent string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[agent]
	if !ok {
		s = semaphore.NewWeighted(l.size)
		l.sems[agent] = s
	}
	return s
}

// TryAcquire takes a slot for agent without waiting. The returned release
// must be called exactly once when ok is true.
func (l *AgentLimiter) TryAcquire(agent string) (release func(), ok bool) {
	s := l.sem(agent)
	if !s.TryAcquire(1) {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { s.Release(1) }) }, true
}

// Acquire waits for a slot for agent until ctx is done.
func (l *AgentLimiter) Acquire(ctx context.Context, agent string) (release func(), err error) {
	s := l.sem(agent)
	if err := s.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() { once.Do(func() { s.Release(1) }) }, nil
}
