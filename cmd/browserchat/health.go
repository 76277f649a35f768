package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/neboloop/browserchat/internal/browser"
	"github.com/neboloop/browserchat/internal/defaults"
	"github.com/neboloop/browserchat/internal/logging"
)

var errUnhealthy = errors.New("browser unavailable")

// HealthCmd creates the health command
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that a usable browser is installed",
		Long: `Print {"healthy": bool, "message": string} as JSON. Exits with status 1
when no browser can be started.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Disable()
			defer logging.Enable()

			dataDir, _ := defaults.DataDir()
			c, err := loadConfig(dataDir)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			return writeHealth(cmd.OutOrStdout(), browser.CheckHealth(ctx, browser.ResolveConfig(c.Browser)))
		},
	}
}

func writeHealth(w io.Writer, h browser.Health) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(h); err != nil {
		return err
	}
	if !h.Healthy {
		return errUnhealthy
	}
	return nil
}
