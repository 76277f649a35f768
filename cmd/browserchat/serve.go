package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neboloop/browserchat/internal/logging"
	"github.com/neboloop/browserchat/internal/server"
)

// ServeCmd creates the serve command
func ServeCmd() *cobra.Command {
	var (
		host  string
		port  int
		quiet bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser chat HTTP API",
		Long: `Start the HTTP API under /api/browser-chat. Sessions stay alive between
requests, so follow-ups that pass a sessionId reuse the open browser.

Examples:
  browserchat serve
  browserchat serve --port 9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcCtx, err := bootstrap(os.Stdout)
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			if host != "" {
				svcCtx.Config.Server.Host = host
			}
			if port != 0 {
				svcCtx.Config.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := svcCtx.OpenDB(ctx); err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}

			if svcCtx.Config.IsAgentsWatchEnabled() {
				go func() {
					if err := svcCtx.Agents.Watch(ctx, svcCtx.Config.Agents.File); err != nil {
						logging.Warnf("agent catalog watch disabled: %v", err)
					}
				}()
			}

			logging.Infof("data dir %s, database %s", svcCtx.DataDir, svcCtx.Config.Database.SQLitePath)
			return server.Run(ctx, svcCtx, server.ServerOptions{Quiet: quiet})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-request logs")

	return cmd
}
