// Package defaults provides embedded default files and the platform data
// directory layout. Default files are copied to the data directory on first
// run or when reset is requested.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/BrowserChat/
//	Windows: %AppData%\BrowserChat\
//	Linux:   ~/.config/browserchat/
//
// Override with BROWSERCHAT_DATA_DIR environment variable.
package defaults

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

//go:embed dotbrowserchat/*
var defaultFiles embed.FS

// Layout of the data directory.
const (
	AgentsFile     = "agents.yaml"
	DatabaseFile   = "browserchat.db"
	ProfilesDir    = "profiles"
	DiagnosticsDir = "diagnostics"
)

// DataDir returns the platform-appropriate data directory.
//
// Set BROWSERCHAT_DATA_DIR to override.
func DataDir() (string, error) {
	if dir := os.Getenv("BROWSERCHAT_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention
	// macOS/Windows: title case per platform convention
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "browserchat"), nil
	}
	return filepath.Join(configDir, "BrowserChat"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist
// and copies default files if they're missing.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := copyDefaults(dir, false); err != nil {
		return "", err
	}

	return dir, nil
}

// Reset replaces the default files in dir. Browser profiles and the
// database are left alone.
func Reset(dir string) error {
	return copyDefaults(dir, true)
}

// copyDefaults copies embedded default files to the data directory.
// If overwrite is true, existing files are replaced.
func copyDefaults(dir string, overwrite bool) error {
	return fs.WalkDir(defaultFiles, "dotbrowserchat", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "dotbrowserchat" {
			return nil
		}

		// embed.FS always uses forward slashes, so trim rather than filepath.Rel.
		relPath := strings.TrimPrefix(path, "dotbrowserchat/")
		destPath := filepath.Join(dir, relPath)

		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}

		if !overwrite {
			if _, err := os.Stat(destPath); err == nil {
				return nil
			}
		}

		data, err := defaultFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", path, err)
		}
		if err := os.WriteFile(destPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", destPath, err)
		}
		return nil
	})
}

// GetDefault returns the content of a default file by name.
// Example: GetDefault("agents.yaml")
func GetDefault(name string) ([]byte, error) {
	return defaultFiles.ReadFile("dotbrowserchat/" + name)
}

// ListDefaults returns the names of all default files.
func ListDefaults() ([]string, error) {
	var files []string
	err := fs.WalkDir(defaultFiles, "dotbrowserchat", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && path != "dotbrowserchat" {
			files = append(files, strings.TrimPrefix(path, "dotbrowserchat/"))
		}
		return nil
	})
	return files, err
}
