package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/lifecycle"
)

// Session is one live browser bound to one agent. It is created by
// Manager.Start and ends with exactly one Shutdown.
type Session struct {
	ID        string
	Agent     string
	CreatedAt time.Time

	profile agents.Profile
	browser Browser

	state        atomic.Int32
	shuttingDown atomic.Bool

	// done is the keep-alive wait token. It is closed once, at the end of
	// Shutdown, and reason is written before that.
	done   chan struct{}
	reason string

	// exchange serializes page work: one message/response cycle at a time.
	exchange sync.Mutex

	mu             sync.Mutex
	cancelExchange context.CancelFunc
	crashReason    string

	onShutdown func(*Session)
	events     *lifecycle.Manager
	logger     *slog.Logger
}

func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed when the session has terminated.
func (s *Session) Done() <-chan struct{} { return s.done }

// Reason returns why the session terminated, or "" while it is running.
func (s *Session) Reason() string {
	select {
	case <-s.done:
		return s.reason
	default:
		return ""
	}
}

// advance moves the state forward. Moves to the same or an earlier state are ignored.
func (s *Session) advance(next State) bool {
	for {
		cur := s.state.Load()
		if State(cur) >= next {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(next)) {
			s.emit(lifecycle.EventStateChanged, next.String())
			return true
		}
	}
}

func (s *Session) emit(event lifecycle.Event, detail string) {
	s.events.Emit(event, lifecycle.SessionEventData{
		SessionID: s.ID,
		Agent:     s.Agent,
		State:     s.State().String(),
		Detail:    detail,
		ElapsedMS: time.Since(s.CreatedAt).Milliseconds(),
	})
}

// KeepAlive blocks until the session terminates and returns the reason.
// A value received on signals shuts the session down; nothing else in
// KeepAlive can end the wait.
func (s *Session) KeepAlive(signals <-chan os.Signal) string {
	if signals != nil {
		go func() {
			select {
			case sig, ok := <-signals:
				if ok {
					s.Shutdown("received signal " + sig.String())
				}
			case <-s.done:
			}
		}()
	}
	<-s.done
	return s.reason
}

// Shutdown closes the browser and releases the session. Only the first call
// does anything; it reports whether this call was the one that ran.
func (s *Session) Shutdown(reason string) bool {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return false
	}
	log := s.logger.With("reason", reason)
	log.Info("shutting down session")
	s.advance(StateShuttingDown)
	s.emit(lifecycle.EventShutdownStarted, reason)

	s.mu.Lock()
	cancel := s.cancelExchange
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Warn("browser close failed", "error", err)
		}
	}
	if s.onShutdown != nil {
		s.onShutdown(s)
	}

	s.reason = reason
	s.advance(StateTerminated)
	close(s.done)
	s.emit(lifecycle.EventShutdownComplete, reason)
	log.Info("session terminated")
	return true
}

// terminate is the browser termination hook. Before keep-alive it aborts the
// in-flight exchange, which then tears the session down itself.
func (s *Session) terminate(reason string) {
	s.mu.Lock()
	if s.crashReason == "" {
		s.crashReason = reason
	}
	cancel := s.cancelExchange
	s.mu.Unlock()

	s.logger.Warn("browser terminated", "reason", reason, "state", s.State().String())
	if cancel != nil {
		cancel()
	}
	if s.State() >= StateKeepAlive {
		s.Shutdown(reason)
	}
}

func (s *Session) crashed() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.crashReason
}

// beginExchange records cancel as the abort hook for the running exchange.
func (s *Session) beginExchange(cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown.Load() {
		return &SessionTerminatedError{SessionID: s.ID, Reason: s.Reason()}
	}
	if s.crashReason != "" {
		return &ProcessCrashError{Agent: s.Agent, Reason: s.crashReason}
	}
	s.cancelExchange = cancel
	return nil
}

func (s *Session) endExchange() {
	s.mu.Lock()
	s.cancelExchange = nil
	s.mu.Unlock()
}

// classify turns an exchange error into a ProcessCrashError when the browser
// went away underneath it.
func (s *Session) classify(err error) error {
	if err == nil {
		return nil
	}
	if reason := s.crashed(); reason != "" {
		return &ProcessCrashError{Agent: s.Agent, Reason: reason, Err: err}
	}
	return err
}

// watchLiveness pings the page and the process every interval. A failed
// ping is a termination trigger: it catches crashes that fire no event.
func (s *Session) watchLiveness(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		what := "page"
		err := s.browser.PingPage(ctx)
		if err == nil {
			what = "process"
			err = s.browser.PingProcess(ctx)
		}
		cancel()

		if err != nil {
			s.Shutdown(fmt.Sprintf("liveness check failed (%s): %v", what, err))
			return
		}
	}
}
