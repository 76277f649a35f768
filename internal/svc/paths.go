package svc

import (
	"os"
	"path/filepath"

	"github.com/neboloop/browserchat/internal/defaults"
)

// browserProfileRoot keeps per-agent profiles under dataDir unless the
// environment overrides it.
func browserProfileRoot(dataDir string) string {
	if dir := os.Getenv("BROWSERCHAT_PROFILE_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(dataDir, defaults.ProfilesDir)
}
