// Package session runs browser chat exchanges end to end: launch, sign-in,
// dispatch, completion, then keep-alive until a termination trigger fires.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/chat"
	"github.com/neboloop/browserchat/internal/lifecycle"
)

// DefaultLivenessInterval is how often a kept-alive session is pinged.
const DefaultLivenessInterval = 10 * time.Second

// Request is one inbound message for an agent.
type Request struct {
	Agent   string
	Message string

	// ExecutorProfileID is carried through for the caller's bookkeeping.
	ExecutorProfileID string
}

// Config wires a Manager. Agents and Launcher are required.
type Config struct {
	Agents   *agents.Registry
	Launcher Launcher

	// Detector defaults to chat.NewDetector.
	Detector   chat.StateDetector
	Login      chat.LoginWaiter
	Dispatcher chat.Dispatcher
	Completion chat.Completion

	// Clock is handed to any engine component that has none of its own.
	Clock chat.Clock

	LivenessInterval time.Duration
	Events           *lifecycle.Manager
	Logger           *slog.Logger
}

// Manager owns the live sessions of one process.
type Manager struct {
	agents     *agents.Registry
	launcher   Launcher
	detector   chat.StateDetector
	login      chat.LoginWaiter
	dispatcher chat.Dispatcher
	completion chat.Completion
	liveness   time.Duration
	sessions   *Registry
	events     *lifecycle.Manager
	logger     *slog.Logger
}

func NewManager(cfg Config) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		agents:     cfg.Agents,
		launcher:   cfg.Launcher,
		detector:   cfg.Detector,
		login:      cfg.Login,
		dispatcher: cfg.Dispatcher,
		completion: cfg.Completion,
		liveness:   cfg.LivenessInterval,
		sessions:   NewRegistry(),
		events:     cfg.Events,
		logger:     logger.With("component", "session"),
	}
	if m.detector == nil {
		m.detector = chat.NewDetector(logger)
	}
	if m.liveness <= 0 {
		m.liveness = DefaultLivenessInterval
	}
	if cfg.Clock != nil {
		if m.login.Clock == nil {
			m.login.Clock = cfg.Clock
		}
		if m.dispatcher.Clock == nil {
			m.dispatcher.Clock = cfg.Clock
		}
		if m.completion.Clock == nil {
			m.completion.Clock = cfg.Clock
		}
	}
	for _, l := range []**slog.Logger{&m.login.Logger, &m.dispatcher.Logger, &m.completion.Logger} {
		if *l == nil {
			*l = logger
		}
	}
	return m
}

// Sessions exposes the live session registry.
func (m *Manager) Sessions() *Registry { return m.sessions }

// Start runs a full exchange on a fresh session. On success the session is
// in KEEP_ALIVE and registered; on any error the browser has been closed.
func (m *Manager) Start(ctx context.Context, req Request) (*Session, chat.Reply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, chat.Reply{}, ErrEmptyMessage
	}
	profile, err := m.agents.Resolve(req.Agent)
	if err != nil {
		return nil, chat.Reply{}, err
	}

	s := m.newSession(profile)
	log := s.logger
	log.Info("starting session", "executor_profile", req.ExecutorProfileID)
	s.emit(lifecycle.EventSessionStarting, profile.URL)

	b, err := m.launcher.Launch(ctx, profile)
	if err != nil {
		s.Shutdown("launch failed")
		return nil, chat.Reply{}, fmt.Errorf("launch browser for %s: %w", profile.Name, err)
	}
	s.browser = b

	// A browser that dies before keep-alive aborts whatever step is running.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.beginExchange(cancel); err != nil {
		s.fail(err)
		return nil, chat.Reply{}, err
	}
	b.OnTerminate(s.terminate)
	s.emit(lifecycle.EventBrowserLaunched, "")

	if err := b.Navigate(ctx, profile.URL); err != nil {
		err = s.classify(&NavigationError{Agent: profile.Name, URL: profile.URL, Err: err})
		s.fail(err)
		return nil, chat.Reply{}, err
	}

	if err := m.authenticate(ctx, s); err != nil {
		err = s.classify(err)
		s.fail(err)
		return nil, chat.Reply{}, err
	}

	reply, err := m.exchange(ctx, s, message)
	if err != nil {
		s.fail(err)
		return nil, chat.Reply{}, err
	}

	m.keepAlive(s)
	return s, reply, nil
}

// FollowUp sends another message on a kept-alive session. A missing or
// terminated session yields *SessionTerminatedError; a failed exchange tears
// the session down.
func (m *Manager) FollowUp(ctx context.Context, sessionID, message string) (*Session, chat.Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, chat.Reply{}, ErrEmptyMessage
	}
	s, ok := m.sessions.Get(sessionID)
	if !ok {
		return nil, chat.Reply{}, &SessionTerminatedError{SessionID: sessionID}
	}
	if s.State() != StateKeepAlive {
		return nil, chat.Reply{}, &SessionTerminatedError{SessionID: sessionID, Reason: s.Reason()}
	}

	reply, err := m.exchange(ctx, s, message)
	if err != nil {
		s.fail(err)
		return nil, chat.Reply{}, err
	}
	return s, reply, nil
}

// Close shuts down every live session.
func (m *Manager) Close(reason string) {
	for _, s := range m.sessions.List() {
		s.Shutdown(reason)
	}
}

func (m *Manager) newSession(profile agents.Profile) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		Agent:      profile.Name,
		CreatedAt:  time.Now(),
		profile:    profile,
		done:       make(chan struct{}),
		onShutdown: m.sessions.Remove,
		events:     m.events,
	}
	s.logger = m.logger.With("session", s.ID, "agent", profile.Name)
	return s
}

// authenticate polls until the page is signed in. The first poll is
// immediate, so an already signed-in profile costs one detection.
func (m *Manager) authenticate(ctx context.Context, s *Session) error {
	s.advance(StateAuthenticating)

	w := m.login
	w.Detector = m.detector
	w.OnLoginRequired = func() {
		s.emit(lifecycle.EventLoginRequired, "sign in to "+s.profile.URL+" in the browser window")
	}
	w.OnProgress = func(p chat.LoginProgress) {
		s.emit(lifecycle.EventLoginProgress, fmt.Sprintf("waiting for login, %s remaining", p.Remaining.Round(time.Second)))
	}
	if err := w.Wait(ctx, s.browser.Page(), s.profile); err != nil {
		return err
	}
	s.emit(lifecycle.EventLoginComplete, "")
	return nil
}

// exchange sends message and waits for the reply. Only one exchange runs
// on a session at a time.
func (m *Manager) exchange(ctx context.Context, s *Session, message string) (chat.Reply, error) {
	s.exchange.Lock()
	defer s.exchange.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := s.beginExchange(cancel); err != nil {
		return chat.Reply{}, err
	}
	defer s.endExchange()

	page := s.browser.Page()

	s.advance(StateDispatching)
	base := m.completion.Baseline(ctx, page, s.profile)
	if err := m.dispatcher.Send(ctx, page, s.profile, message); err != nil {
		return chat.Reply{}, s.classify(err)
	}
	s.emit(lifecycle.EventMessageSent, "")

	s.advance(StateAwaitingResponse)
	reply, err := m.completion.AwaitAfter(ctx, page, s.profile, base)
	if err != nil {
		return chat.Reply{}, s.classify(err)
	}

	detail := "complete"
	if !reply.Complete {
		detail = "partial reply, completion not detected"
	}
	s.emit(lifecycle.EventReplyReceived, detail)
	s.logger.Info("reply received", "length", len(reply.Text), "complete", reply.Complete,
		"signal", string(reply.Signal), "attempts", reply.Attempts)
	return reply, nil
}

// keepAlive registers s and starts its liveness probe. A termination that
// raced with the end of the exchange shuts the session down right away.
func (m *Manager) keepAlive(s *Session) {
	m.sessions.Put(s)
	s.advance(StateKeepAlive)
	s.emit(lifecycle.EventKeepAlive, "")

	if reason := s.crashed(); reason != "" {
		s.Shutdown(reason)
		return
	}
	go s.watchLiveness(m.liveness)
}

// fail tears the session down after a failed exchange.
func (s *Session) fail(err error) {
	s.events.Emit(lifecycle.EventExchangeFailed, lifecycle.SessionEventData{
		SessionID: s.ID,
		Agent:     s.Agent,
		State:     s.State().String(),
		Error:     err.Error(),
	})
	s.Shutdown("exchange failed: " + err.Error())
}
