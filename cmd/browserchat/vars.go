package cli

import (
	"github.com/spf13/cobra"

	"github.com/neboloop/browserchat/internal/config"
)

// Shared CLI flags (used across multiple command files)
var (
	cfgFile   string
	verbose   bool
	logFormat string
)

// ServerConfig holds the loaded configuration (set by main)
var ServerConfig *config.Config

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "browserchat",
		Short: "Drive web chat agents through a real browser",
		Long: `browserchat sends a message to a web chat agent (Claude, Microsoft 365 Copilot)
through a headful browser on a persistent profile, waits for the reply, and keeps
the browser open for follow-ups.

Examples:
  browserchat chat --agent claude --message "Summarize this repo"
  browserchat serve
  browserchat health`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <data dir>/browserchat.yaml if present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text (default from config)")

	// Add commands
	rootCmd.AddCommand(ChatCmd())
	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(HealthCmd())
	rootCmd.AddCommand(AgentsCmd())
	rootCmd.AddCommand(DetectCmd())
	rootCmd.AddCommand(InstallCmd())

	return rootCmd
}
