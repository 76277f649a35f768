package session

// State is a session's position in its lifecycle. States only move forward.
type State int32

const (
	StateInitializing State = iota
	StateAuthenticating
	StateDispatching
	StateAwaitingResponse
	StateKeepAlive
	StateShuttingDown
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateDispatching:
		return "DISPATCHING"
	case StateAwaitingResponse:
		return "AWAITING_RESPONSE"
	case StateKeepAlive:
		return "KEEP_ALIVE"
	case StateShuttingDown:
		return "SHUTTING_DOWN"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "INVALID"
	}
}
