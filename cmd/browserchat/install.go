package cli

import (
	"github.com/spf13/cobra"

	"github.com/neboloop/browserchat/internal/browser"
	"github.com/neboloop/browserchat/internal/logging"
)

// InstallCmd creates the install command
func InstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Download the Playwright driver and its Chromium build",
		Long: `Download the Playwright driver and Chromium. Only needed when no system
Chrome, Edge, Brave or Chromium is installed (set browser.install_browsers).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Infof("installing playwright driver and chromium")
			if err := browser.Install(); err != nil {
				return err
			}
			logging.Infof("install complete")
			return nil
		},
	}
}
