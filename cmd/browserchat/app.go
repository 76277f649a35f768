package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/neboloop/browserchat/internal/config"
	"github.com/neboloop/browserchat/internal/defaults"
	"github.com/neboloop/browserchat/internal/logging"
	"github.com/neboloop/browserchat/internal/svc"
)

// userConfigFile is looked up in the data directory when --config is not given.
const userConfigFile = "browserchat.yaml"

// loadConfig returns the embedded defaults overlaid with the user's config
// file and command line flags.
func loadConfig(dataDir string) (config.Config, error) {
	var c config.Config
	if ServerConfig != nil {
		c = *ServerConfig
	}

	path := cfgFile
	if path == "" && dataDir != "" {
		if candidate := filepath.Join(dataDir, userConfigFile); fileExists(candidate) {
			path = candidate
		}
	}
	if path != "" {
		if err := c.MergeFile(path); err != nil {
			return c, err
		}
	}

	if verbose {
		c.Log.Level = "debug"
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	return c, nil
}

// bootstrap prepares the data directory, logger and service context shared
// by the commands that drive a browser. Logs go to w.
func bootstrap(w io.Writer) (*svc.ServiceContext, error) {
	dataDir, err := defaults.EnsureDataDir()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize data directory: %w", err)
	}
	c, err := loadConfig(dataDir)
	if err != nil {
		return nil, err
	}

	logger := logging.New(w, logging.Options{Level: c.Log.Level, Format: c.Log.Format})
	slog.SetDefault(logger)

	return svc.NewServiceContext(c, dataDir, logger)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
