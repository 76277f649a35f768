package browser

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/neboloop/browserchat/internal/defaults"
)

// Config is the browser section of browserchat.yaml.
type Config struct {
	// ExecutablePath overrides auto-detection of Chrome.
	ExecutablePath string `json:"executablePath,omitempty" yaml:"executable_path,omitempty"`

	// Channel selects an installed branded browser ("chrome", "msedge").
	// Empty uses the detected executable, or Playwright's own Chromium.
	Channel string `json:"channel,omitempty" yaml:"channel,omitempty"`

	// ProfileRoot holds one user-data directory per agent.
	ProfileRoot string `json:"profileRoot,omitempty" yaml:"profile_root,omitempty"`

	// NoSandbox disables Chrome sandbox (needed in some containers).
	NoSandbox bool `json:"noSandbox,omitempty" yaml:"no_sandbox,omitempty"`

	// InstallBrowsers lets Playwright download its Chromium build when no
	// local browser is usable.
	InstallBrowsers bool `json:"installBrowsers,omitempty" yaml:"install_browsers,omitempty"`

	// Args are appended to the Chrome command line.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`

	LaunchTimeout   time.Duration `json:"launchTimeout,omitempty" yaml:"launch_timeout,omitempty"`
	NavigateTimeout time.Duration `json:"navigateTimeout,omitempty" yaml:"navigate_timeout,omitempty"`
	ActionTimeout   time.Duration `json:"actionTimeout,omitempty" yaml:"action_timeout,omitempty"`
	TypeDelay       time.Duration `json:"typeDelay,omitempty" yaml:"type_delay,omitempty"`
}

// ResolvedConfig is Config with every default applied.
type ResolvedConfig struct {
	ExecutablePath  string
	Channel         string
	ProfileRoot     string
	NoSandbox       bool
	InstallBrowsers bool
	Args            []string
	LaunchTimeout   time.Duration
	NavigateTimeout time.Duration
	ActionTimeout   time.Duration
	TypeDelay       time.Duration
}

// ResolveConfig resolves a browser config with defaults applied.
func ResolveConfig(cfg Config) *ResolvedConfig {
	r := &ResolvedConfig{
		ExecutablePath:  cfg.ExecutablePath,
		Channel:         cfg.Channel,
		ProfileRoot:     cfg.ProfileRoot,
		NoSandbox:       cfg.NoSandbox,
		InstallBrowsers: cfg.InstallBrowsers,
		Args:            cfg.Args,
		LaunchTimeout:   cfg.LaunchTimeout,
		NavigateTimeout: cfg.NavigateTimeout,
		ActionTimeout:   cfg.ActionTimeout,
		TypeDelay:       cfg.TypeDelay,
	}
	if r.ProfileRoot == "" {
		r.ProfileRoot = defaultProfileRoot()
	}
	if r.LaunchTimeout <= 0 {
		r.LaunchTimeout = DefaultLaunchTimeout
	}
	if r.NavigateTimeout <= 0 {
		r.NavigateTimeout = DefaultNavigateTimeout
	}
	if r.ActionTimeout <= 0 {
		r.ActionTimeout = DefaultActionTimeout
	}
	if r.TypeDelay < 0 {
		r.TypeDelay = 0
	} else if r.TypeDelay == 0 {
		r.TypeDelay = DefaultTypeDelay
	}
	return r
}

// UserDataDir is the persistent profile directory of agent. Profiles of
// different agents never share a directory.
func (c *ResolvedConfig) UserDataDir(agent string) string {
	return filepath.Join(c.ProfileRoot, profileDirName(agent))
}

func defaultProfileRoot() string {
	if dir := os.Getenv("BROWSERCHAT_PROFILE_DIR"); dir != "" {
		return dir
	}
	dir, err := defaults.DataDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".browserchat", defaults.ProfilesDir)
	}
	return filepath.Join(dir, defaults.ProfilesDir)
}

// profileDirName maps an agent name to a safe single path element.
func profileDirName(agent string) string {
	name := strings.ToLower(strings.TrimSpace(agent))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "default"
	}
	return b.String()
}
