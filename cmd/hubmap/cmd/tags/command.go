// Package tags provides the command for listing tag and facet choices.
package tags

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/cmd/globals"
	"github.com/agentstation/hubmap/internal/cmd/output"
	"github.com/agentstation/hubmap/internal/cmd/table"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/logging"
	"github.com/agentstation/hubmap/pkg/query"
)

// TagsResult is the machine-readable output of the tags command.
type TagsResult struct {
	Category catalog.Category `json:"category" yaml:"category"`
	Tags     []string         `json:"tags" yaml:"tags"`
}

// FacetsResult is the machine-readable output of tags --facets.
type FacetsResult struct {
	Category catalog.Category `json:"category" yaml:"category"`
	Facets   query.Facets     `json:"facets" yaml:"facets"`
}

// NewCommand creates the tags command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		GroupID: "core",
		Short:   "List tag choices for a category",
		Long: `List the tags present in the loaded items of a category, sorted and
de-duplicated. With --facets, list the library, SDK, dataset and model
choices instead.`,
		Example: `  hubmap tags                      # Tags across every category
  hubmap tags --category dataset
  hubmap tags --category space --facets`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, _ := cmd.Flags().GetString("category")
			facets, _ := cmd.Flags().GetBool("facets")
			return run(cmd, app, category, facets)
		},
	}

	cmd.Flags().StringP("category", "c", string(catalog.CategoryAll),
		"Category: all, code, dataset, model, space, forkedCode")
	cmd.Flags().Bool("facets", false,
		"List facet choices instead of tags")
	globals.RegisterCategoryCompletion(cmd, "category")

	return cmd
}

func run(cmd *cobra.Command, app application.Application, name string, facets bool) error {
	category, err := catalog.ParseCategory(name)
	if err != nil {
		return err
	}

	c, err := app.Client()
	if err != nil {
		return err
	}

	logger := app.Logger()
	ctx := logging.WithCategory(logging.WithLogger(cmd.Context(), logger), string(category))
	if _, err := c.EnsureLoaded(ctx, category); err != nil {
		if category != catalog.CategoryAll {
			return err
		}
		logger.Warn().Err(err).Msg("Some categories failed to load; showing partial choices")
	}

	format := output.DetectFormat(app.OutputFormat())

	if facets {
		result := FacetsResult{Category: category, Facets: c.Facets(category)}
		return output.Write(cmd.OutOrStdout(), format, result, func(bool) table.Data {
			return table.FacetsToTableData(result.Facets)
		})
	}

	tags := c.Tags(category)
	if tags == nil {
		tags = []string{}
	}
	return output.Write(cmd.OutOrStdout(), format, TagsResult{Category: category, Tags: tags}, func(bool) table.Data {
		return table.TagsToTableData(tags)
	})
}
