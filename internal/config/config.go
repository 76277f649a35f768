package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/neboloop/browserchat/internal/browser"
	"github.com/neboloop/browserchat/internal/defaults"
)

// LoadFromBytes loads configuration from YAML bytes with environment variable expansion
func LoadFromBytes(data []byte) (Config, error) {
	var c Config
	if err := c.merge(data); err != nil {
		return c, err
	}
	return c, nil
}

// MergeFile overlays the YAML file at path onto c. Keys absent from the
// file keep their current value.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if err := c.merge(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func (c *Config) merge(data []byte) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// parseBool parses a string as boolean with a default value.
// Accepts: "true", "1", "yes" as true; empty or other values return default.
func parseBool(s string, defaultVal bool) bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return defaultVal
	}
	return s == "true" || s == "1" || s == "yes"
}

type Config struct {
	Log struct {
		Level  string `yaml:"Level"`
		Format string `yaml:"Format"`
	} `yaml:"Log"`

	Browser browser.Config `yaml:"Browser"`

	Engine struct {
		ProbeTimeout          time.Duration `yaml:"ProbeTimeout"`
		LoginMaxWait          time.Duration `yaml:"LoginMaxWait"`
		LoginPollInterval     time.Duration `yaml:"LoginPollInterval"`
		LoginProgressInterval time.Duration `yaml:"LoginProgressInterval"`
		SubmitDelay           time.Duration `yaml:"SubmitDelay"`
		ResponsePollInterval  time.Duration `yaml:"ResponsePollInterval"`
		ResponseMaxAttempts   int           `yaml:"ResponseMaxAttempts"`
		StablePolls           int           `yaml:"StablePolls"`
		QuietPolls            int           `yaml:"QuietPolls"`
		GracePeriod           time.Duration `yaml:"GracePeriod"`
		LivenessInterval      time.Duration `yaml:"LivenessInterval"`
		// LoginNotify raises a desktop notification while waiting for sign-in.
		LoginNotify string `yaml:"LoginNotify"`
		// SnapshotDir receives diagnostics screenshots. Empty means
		// <data dir>/diagnostics.
		SnapshotDir string `yaml:"SnapshotDir"`
	} `yaml:"Engine"`

	Server struct {
		Host                  string `yaml:"Host"`
		Port                  int    `yaml:"Port"`
		MaxConcurrentPerAgent int64  `yaml:"MaxConcurrentPerAgent"`
	} `yaml:"Server"`

	Database struct {
		SQLitePath string `yaml:"SQLitePath"`
	} `yaml:"Database"`

	Agents struct {
		// File is an optional agents.yaml extending the built-in catalog.
		File string `yaml:"File"`
		// Watch reloads File when it changes (serve only).
		Watch string `yaml:"Watch"`
	} `yaml:"Agents"`
}

// ResolvePaths fills unset file locations from the data directory.
func (c *Config) ResolvePaths(dataDir string) {
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = filepath.Join(dataDir, defaults.DatabaseFile)
	}
	if c.Engine.SnapshotDir == "" {
		c.Engine.SnapshotDir = filepath.Join(dataDir, defaults.DiagnosticsDir)
	}
	if c.Agents.File == "" {
		c.Agents.File = filepath.Join(dataDir, defaults.AgentsFile)
	}
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c Config) IsAgentsWatchEnabled() bool {
	return parseBool(c.Agents.Watch, true)
}

func (c Config) IsLoginNotifyEnabled() bool {
	return parseBool(c.Engine.LoginNotify, true)
}
