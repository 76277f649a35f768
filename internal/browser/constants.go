// Package browser launches headful Chromium on a persistent per-agent profile
// through Playwright and exposes the page to the chat engine.
package browser

import "time"

const (
	// DefaultLaunchTimeout bounds starting the browser process.
	DefaultLaunchTimeout = 60 * time.Second

	// DefaultNavigateTimeout bounds loading the agent URL.
	DefaultNavigateTimeout = 60 * time.Second

	// DefaultActionTimeout bounds a click or a keystroke sequence.
	DefaultActionTimeout = 10 * time.Second

	// DefaultTypeDelay is the pause between typed characters.
	DefaultTypeDelay = 15 * time.Millisecond

	// LockFileName is created inside each profile directory while a
	// session owns it.
	LockFileName = "browserchat.lock"
)
