// Package lifecycle provides event hooks for browser chat sessions.
//
// A Manager is an explicit instance owned by whoever runs sessions: the CLI
// prints events as progress lines, the server fans them out to websocket
// subscribers.
package lifecycle

import (
	"log/slog"
	"sync"
)

// Event types for lifecycle hooks
type Event string

const (
	// Session lifecycle events
	EventSessionStarting Event = "session_starting"
	EventBrowserLaunched Event = "browser_launched"
	EventStateChanged    Event = "state_changed"
	EventKeepAlive       Event = "keep_alive"

	// Authentication events
	EventLoginRequired Event = "login_required"
	EventLoginProgress Event = "login_progress"
	EventLoginComplete Event = "login_complete"

	// Exchange events
	EventMessageSent    Event = "message_sent"
	EventReplyReceived  Event = "reply_received"
	EventExchangeFailed Event = "exchange_failed"

	// Shutdown events
	EventShutdownStarted  Event = "shutdown_started"
	EventShutdownComplete Event = "shutdown_complete"
)

// SessionEventData is the payload of every session event.
type SessionEventData struct {
	SessionID string `json:"sessionId"`
	Agent     string `json:"agent"`
	State     string `json:"state,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsedMs,omitempty"`
}

// Handler is a function that handles a lifecycle event
type Handler func(event Event, data SessionEventData)

// Manager manages lifecycle event subscriptions and dispatching
type Manager struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
	any      map[int]Handler
	nextID   int
	logger   *slog.Logger
}

// New returns an empty Manager. A nil logger disables emit logging.
func New(logger *slog.Logger) *Manager {
	return &Manager{
		handlers: make(map[Event][]Handler),
		any:      make(map[int]Handler),
		logger:   logger,
	}
}

// On registers a handler for a lifecycle event
func (m *Manager) On(event Event, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], handler)
}

// Subscribe registers a handler for every event. The returned func removes it.
func (m *Manager) Subscribe(handler Handler) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.any[id] = handler
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.any, id)
		m.mu.Unlock()
	}
}

// Emit dispatches an event to all registered handlers. Safe on a nil Manager.
func (m *Manager) Emit(event Event, data SessionEventData) {
	if m == nil {
		return
	}
	m.mu.RLock()
	handlers := append([]Handler(nil), m.handlers[event]...)
	for _, h := range m.any {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	if m.logger != nil {
		m.logger.Debug("lifecycle event", "event", string(event), "session", data.SessionID, "agent", data.Agent)
	}
	for _, h := range handlers {
		// Run handlers synchronously (they can spawn goroutines if needed)
		h(event, data)
	}
}

// OnShutdown is a convenience function to register a shutdown handler
func (m *Manager) OnShutdown(handler func(data SessionEventData)) {
	m.On(EventShutdownComplete, func(_ Event, data SessionEventData) {
		handler(data)
	})
}
