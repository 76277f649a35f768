package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// BrowserKind identifies the type of Chromium-based browser.
type BrowserKind string

const (
	BrowserChrome   BrowserKind = "chrome"
	BrowserBrave    BrowserKind = "brave"
	BrowserEdge     BrowserKind = "edge"
	BrowserChromium BrowserKind = "chromium"
	BrowserCanary   BrowserKind = "canary"
	BrowserCustom   BrowserKind = "custom"
)

// BrowserExecutable represents a found browser binary.
type BrowserExecutable struct {
	Kind BrowserKind
	Path string
}

type candidate struct {
	kind BrowserKind
	path string
}

// FindChromeExecutable finds a Chrome/Chromium browser on the system. It
// returns nil, nil when nothing is installed in a known location.
func FindChromeExecutable(customPath string) (*BrowserExecutable, error) {
	if customPath != "" {
		if !fileExists(customPath) {
			return nil, fmt.Errorf("browser executable not found: %s", customPath)
		}
		return &BrowserExecutable{Kind: BrowserCustom, Path: customPath}, nil
	}

	var candidates []candidate
	switch runtime.GOOS {
	case "darwin":
		candidates = macCandidates()
	case "linux":
		candidates = linuxCandidates()
	case "windows":
		candidates = windowsCandidates()
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	for _, c := range candidates {
		if fileExists(c.path) {
			return &BrowserExecutable{Kind: c.kind, Path: c.path}, nil
		}
	}

	// Last resort: whatever is on PATH.
	for _, c := range []candidate{
		{BrowserChrome, "google-chrome"},
		{BrowserChromium, "chromium"},
		{BrowserChromium, "chromium-browser"},
		{BrowserEdge, "microsoft-edge"},
	} {
		if p, err := exec.LookPath(c.path); err == nil {
			return &BrowserExecutable{Kind: c.kind, Path: p}, nil
		}
	}
	return nil, nil
}

// ProbeVersion runs the executable with --version and returns its output.
// The whole process group is killed if ctx expires first.
func ProbeVersion(ctx context.Context, exe *BrowserExecutable) (string, error) {
	if exe == nil {
		return "", errors.New("no browser executable")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, exe.Path, "--version")
	setChromeProcessGroup(cmd)
	cmd.Cancel = func() error {
		killChromeProcessGroup(cmd, true)
		return nil
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s --version: %w: %s", exe.Path, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// buildChromeArgs returns the extra command line for a headful persistent
// context. Playwright supplies --user-data-dir and the debugging pipe itself.
func buildChromeArgs(cfg *ResolvedConfig) []string {
	args := []string{
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-features=Translate,MediaRouter",
		"--disable-session-crashed-bubble",
		"--hide-crash-restore-bubble",
		"--password-store=basic",
		// Chat UIs refuse or degrade for obviously automated browsers.
		"--disable-blink-features=AutomationControlled",
	}

	if cfg.NoSandbox {
		args = append(args, "--no-sandbox", "--disable-setuid-sandbox")
	}

	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}

	return append(args, cfg.Args...)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func macCandidates() []candidate {
	home := os.Getenv("HOME")
	var out []candidate
	for _, app := range []candidate{
		{BrowserChrome, "Google Chrome.app/Contents/MacOS/Google Chrome"},
		{BrowserBrave, "Brave Browser.app/Contents/MacOS/Brave Browser"},
		{BrowserEdge, "Microsoft Edge.app/Contents/MacOS/Microsoft Edge"},
		{BrowserChromium, "Chromium.app/Contents/MacOS/Chromium"},
		{BrowserCanary, "Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary"},
	} {
		out = append(out,
			candidate{app.kind, filepath.Join("/Applications", app.path)},
			candidate{app.kind, filepath.Join(home, "Applications", app.path)},
		)
	}
	return out
}

func linuxCandidates() []candidate {
	return []candidate{
		{BrowserChrome, "/usr/bin/google-chrome"},
		{BrowserChrome, "/usr/bin/google-chrome-stable"},
		{BrowserChrome, "/usr/bin/chrome"},
		{BrowserBrave, "/usr/bin/brave-browser"},
		{BrowserBrave, "/usr/bin/brave"},
		{BrowserBrave, "/snap/bin/brave"},
		{BrowserEdge, "/usr/bin/microsoft-edge"},
		{BrowserEdge, "/usr/bin/microsoft-edge-stable"},
		{BrowserChromium, "/usr/bin/chromium"},
		{BrowserChromium, "/usr/bin/chromium-browser"},
		{BrowserChromium, "/snap/bin/chromium"},
	}
}

func windowsCandidates() []candidate {
	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	programFilesX86 := os.Getenv("ProgramFiles(x86)")
	if programFilesX86 == "" {
		programFilesX86 = `C:\Program Files (x86)`
	}

	var roots []string
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		roots = append(roots, localAppData)
	}
	roots = append(roots, programFiles, programFilesX86)

	var out []candidate
	for _, root := range roots {
		out = append(out,
			candidate{BrowserChrome, filepath.Join(root, "Google", "Chrome", "Application", "chrome.exe")},
			candidate{BrowserBrave, filepath.Join(root, "BraveSoftware", "Brave-Browser", "Application", "brave.exe")},
			candidate{BrowserEdge, filepath.Join(root, "Microsoft", "Edge", "Application", "msedge.exe")},
		)
	}
	return out
}
