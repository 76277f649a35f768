package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/neboloop/browserchat/internal/chat"
)

// DetectCmd creates the detect command
func DetectCmd() *cobra.Command {
	var agent string

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Open an agent's page and report whether the profile is signed in",
		Long: `Launch the browser on the agent's profile, load its page, print the
detected authentication state and close the browser. Useful after editing
selectors in agents.yaml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcCtx, err := bootstrap(os.Stderr)
			if err != nil {
				return err
			}
			defer svcCtx.Close()

			profile, err := svcCtx.Agents.Resolve(agent)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			b, err := svcCtx.Launcher.Launch(ctx, profile)
			if err != nil {
				return err
			}
			defer b.Close()

			if err := b.Navigate(ctx, profile.URL); err != nil {
				return err
			}
			detector := &chat.Detector{ProbeTimeout: svcCtx.Config.Engine.ProbeTimeout, Logger: svcCtx.Logger}
			state := detector.Detect(ctx, b.Page(), profile)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", profile.Name, state, b.Page().URL())
			return nil
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "agent name")
	cmd.MarkFlagRequired("agent")
	return cmd
}
