// Package stats provides the command for the catalog repository badge.
package stats

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/cmd/output"
	"github.com/agentstation/hubmap/internal/cmd/table"
	"github.com/agentstation/hubmap/pkg/logging"
)

// NewCommand creates the stats command using app context.
func NewCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:     "stats",
		GroupID: "core",
		Short:   "Show stars, forks and latest release of the catalog repository",
		Example: `  hubmap stats
  hubmap stats -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.Client()
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), app.Logger())
			stats, err := c.RepositoryStats(ctx)
			if err != nil {
				return err
			}

			format := output.DetectFormat(app.OutputFormat())
			return output.Write(cmd.OutOrStdout(), format, stats, func(bool) table.Data {
				return table.StatsToTableData(stats)
			})
		},
	}
}
