// Package list provides the command for listing catalog items.
package list

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/cmd/globals"
	"github.com/agentstation/hubmap/internal/cmd/output"
	"github.com/agentstation/hubmap/internal/cmd/table"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/logging"
	"github.com/agentstation/hubmap/pkg/query"
)

// Result is the machine-readable output of the list command.
type Result struct {
	Items  []catalog.Item `json:"items" yaml:"items"`
	Count  int            `json:"count" yaml:"count"`
	Params query.Params   `json:"params" yaml:"params"`
	State  string         `json:"state" yaml:"state"`
}

// NewCommand creates the list command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		GroupID: "core",
		Aliases: []string{"ls"},
		Short:   "List catalog items",
		Long: `List the organization's assets, loading the selected category on first use.

Filters combine: search text, tag and category-scoped facets must all
match. Invalid values fall back to their defaults. An encoded --state
is applied first and explicit flags override its keys.`,
		Example: `  hubmap list                                  # Everything, newest first
  hubmap list --category model --sort popularity-desc
  hubmap list --category space --sdk gradio
  hubmap list --search beetle --tag vision
  hubmap list --state "category=dataset&search=fish" --sort name-asc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, app, globals.ParseQuery(cmd))
		},
	}

	globals.AddQueryFlags(cmd)

	return cmd
}

func run(cmd *cobra.Command, app application.Application, params query.Params) error {
	c, err := app.Client()
	if err != nil {
		return err
	}

	logger := app.Logger()
	ctx := logging.WithOperation(logging.WithLogger(cmd.Context(), logger), "list_items")

	items, err := c.Search(ctx, params)
	if err != nil {
		if params.Category != catalog.CategoryAll || len(items) == 0 {
			return err
		}
		logger.Warn().Err(err).Int("item_count", len(items)).Msg("Some categories failed to load; showing partial results")
	}

	if items == nil {
		items = []catalog.Item{}
	}
	result := Result{
		Items:  items,
		Count:  len(items),
		Params: params,
		State:  query.Encode(params),
	}

	format := output.DetectFormat(app.OutputFormat())
	if format.IsTable() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Found %d items\n", len(items))
	}

	return output.Write(cmd.OutOrStdout(), format, result, func(wide bool) table.Data {
		return table.ItemsToTableData(items, wide)
	})
}
