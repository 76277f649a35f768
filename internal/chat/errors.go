package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrLoginTimeout is matched by every LoginTimeoutError.
	ErrLoginTimeout = errors.New("login timeout")

	// ErrInputNotFound is matched by every InputNotFoundError.
	ErrInputNotFound = errors.New("input not found")
)

// LoginTimeoutError means the user did not finish signing in within the
// allowed wait. It is fatal to the exchange; the caller decides whether to retry.
type LoginTimeoutError struct {
	Agent  string
	Waited time.Duration
	Polls  int
}

func (e *LoginTimeoutError) Error() string {
	return fmt.Sprintf("%s: not logged in after %s (%d checks); log in in the opened browser window and retry",
		e.Agent, e.Waited.Round(time.Second), e.Polls)
}

func (e *LoginTimeoutError) Is(target error) bool { return target == ErrLoginTimeout }

// InputNotFoundError means no input selector matched the page.
type InputNotFoundError struct {
	Agent    string
	Tried    []string
	Snapshot string // screenshot path, empty if none was captured
}

func (e *InputNotFoundError) Error() string {
	msg := fmt.Sprintf("%s: no message input found (tried %s)", e.Agent, strings.Join(e.Tried, " | "))
	if e.Snapshot != "" {
		msg += "; screenshot saved to " + e.Snapshot
	}
	return msg
}

func (e *InputNotFoundError) Is(target error) bool { return target == ErrInputNotFound }
