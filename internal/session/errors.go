package session

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMessage      = errors.New("message is empty")
	ErrNavigation        = errors.New("navigation failed")
	ErrSessionTerminated = errors.New("session terminated")
	ErrProcessCrash      = errors.New("browser process crashed")
)

// NavigationError means the agent URL could not be reached. It is not retried.
type NavigationError struct {
	Agent string
	URL   string
	Err   error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s: navigate to %s: %v", e.Agent, e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

func (e *NavigationError) Is(target error) bool { return target == ErrNavigation }

// SessionTerminatedError means a follow-up named a session that no longer
// exists. The caller has to start a fresh session.
type SessionTerminatedError struct {
	SessionID string
	Reason    string
}

func (e *SessionTerminatedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("session %s is not running; start a new session", e.SessionID)
	}
	return fmt.Sprintf("session %s terminated (%s); start a new session", e.SessionID, e.Reason)
}

func (e *SessionTerminatedError) Is(target error) bool { return target == ErrSessionTerminated }

// ProcessCrashError means the browser went away in the middle of an exchange.
type ProcessCrashError struct {
	Agent  string
	Reason string
	Err    error
}

func (e *ProcessCrashError) Error() string {
	return fmt.Sprintf("%s: browser terminated during exchange (%s)", e.Agent, e.Reason)
}

func (e *ProcessCrashError) Unwrap() error { return e.Err }

func (e *ProcessCrashError) Is(target error) bool { return target == ErrProcessCrash }
