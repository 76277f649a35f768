package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/neboloop/browserchat/internal/agents"
	"github.com/neboloop/browserchat/internal/defaults"
	"github.com/neboloop/browserchat/internal/logging"
)

// AgentsCmd creates the agents command
func AgentsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List the configured agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Disable()
			defer logging.Enable()

			dataDir, err := defaults.DataDir()
			if err != nil {
				return err
			}
			c, err := loadConfig(dataDir)
			if err != nil {
				return err
			}
			c.ResolvePaths(dataDir)

			registry := agents.Default()
			if err := registry.LoadFile(c.Agents.File); err != nil {
				return err
			}
			return listAgents(cmd.OutOrStdout(), registry, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print full profiles as JSON")
	return cmd
}

func listAgents(w io.Writer, registry *agents.Registry, asJSON bool) error {
	profiles := registry.Profiles()
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tURL")
	for _, p := range profiles {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.URL)
	}
	return tw.Flush()
}
