package browser

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Health reports whether a usable browser is installed.
type Health struct {
	Healthy    bool   `json:"healthy"`
	Message    string `json:"message"`
	Executable string `json:"executable,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Version    string `json:"version,omitempty"`
}

// CheckHealth locates the browser and runs it with --version. It never
// launches a window.
func CheckHealth(ctx context.Context, cfg *ResolvedConfig) Health {
	if cfg.Channel != "" && cfg.ExecutablePath == "" {
		version, err := driverVersion(ctx)
		if err != nil {
			return Health{Kind: cfg.Channel, Message: fmt.Sprintf("playwright driver unavailable for channel %q: %v", cfg.Channel, err)}
		}
		return Health{
			Healthy: true,
			Kind:    cfg.Channel,
			Version: version,
			Message: fmt.Sprintf("using Playwright channel %q", cfg.Channel),
		}
	}
	exe, err := FindChromeExecutable(cfg.ExecutablePath)
	if err != nil {
		return Health{Message: err.Error()}
	}
	if exe == nil {
		if cfg.InstallBrowsers {
			return Health{Healthy: true, Message: "no system browser found; Playwright Chromium will be used"}
		}
		return Health{Message: "no supported browser found (Chrome/Brave/Edge/Chromium)"}
	}
	h := Health{Executable: exe.Path, Kind: string(exe.Kind)}
	version, err := ProbeVersion(ctx, exe)
	if err != nil {
		h.Message = err.Error()
		return h
	}
	h.Healthy = true
	h.Version = version
	h.Message = "browser available"
	return h
}

// driverVersion runs the installed Playwright driver with --version. It
// never downloads anything.
var driverVersion = func(ctx context.Context) (string, error) {
	driver, err := playwright.NewDriver(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return "", err
	}
	versionCmd := driver.Command("--version")
	cmd := exec.CommandContext(ctx, versionCmd.Path, versionCmd.Args[1:]...)
	cmd.Env = versionCmd.Env
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("run driver: %w (try `browserchat install`)", err)
	}
	return strings.TrimSpace(string(out)), nil
}
