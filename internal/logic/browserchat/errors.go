package browserchat

import "errors"

var (
	// ErrAgentBusy is returned when the agent already has an exchange in flight.
	ErrAgentBusy = errors.New("agent is busy with another message")

	// ErrAgentMismatch is returned when a follow-up names a different agent
	// than the session it continues.
	ErrAgentMismatch = errors.New("agentType does not match the session's agent")

	// ErrNoDatabase is returned by execution lookups when persistence is off.
	ErrNoDatabase = errors.New("execution history is not enabled")
)
