package session

import (
	"context"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/chat"
)

// Browser is one launched browser profile driving a single page.
type Browser interface {
	Page() chat.Page

	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// OnTerminate registers fn for process disconnect, page close and page
	// crash. fn may fire more than once and from any goroutine.
	OnTerminate(fn func(reason string))

	// PingPage and PingProcess are the cheap capability checks used by the
	// liveness probe.
	PingPage(ctx context.Context) error
	PingProcess(ctx context.Context) error

	Close() error
}

// Launcher opens a browser on the persistent profile of an agent.
type Launcher interface {
	Launch(ctx context.Context, profile agents.Profile) (Browser, error)
}
