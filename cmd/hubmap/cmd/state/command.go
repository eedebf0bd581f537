// Package state provides commands for encoding and decoding query state.
package state

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/cmd/globals"
	"github.com/agentstation/hubmap/internal/cmd/output"
	"github.com/agentstation/hubmap/internal/cmd/table"
	"github.com/agentstation/hubmap/pkg/query"
)

// Result pairs a query with its encoding.
type Result struct {
	Params query.Params `json:"params" yaml:"params"`
	State  string       `json:"state" yaml:"state"`
}

// NewCommand creates the state command using app context.
func NewCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "state",
		GroupID: "management",
		Short:   "Encode and decode shareable query state",
		Long: `Query state is a flat key=value string with sorted keys. Values equal
to their defaults are omitted, so the default query encodes to an empty
string. Decoding never fails: unknown categories and sort keys revert to
their defaults and unknown keys are ignored.`,
	}

	cmd.AddCommand(newEncodeCommand(app))
	cmd.AddCommand(newDecodeCommand(app))

	return cmd
}

func newEncodeCommand(app application.Application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode query flags as a state string",
		Example: `  hubmap state encode --category model --sort name-asc
  hubmap state encode --state "category=space" --sdk gradio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return write(cmd, app, globals.ParseQuery(cmd))
		},
	}

	globals.AddQueryFlags(cmd)

	return cmd
}

func newDecodeCommand(app application.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <location>",
		Short: "Decode a state string or a path?query#fragment location",
		Long: `Decode a state string. A full location is accepted too: state in the
fragment overrides state in the query string.`,
		Example: `  hubmap state decode "category=model&sort=name-asc"
  hubmap state decode "/catalog?category=model#tag=vision"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return write(cmd, app, query.DecodeLocation(args[0]))
		},
	}
}

func write(cmd *cobra.Command, app application.Application, params query.Params) error {
	result := Result{Params: params, State: query.Encode(params)}
	format := output.DetectFormat(app.OutputFormat())
	return output.Write(cmd.OutOrStdout(), format, result, func(bool) table.Data {
		return table.StateToTableData(result.Params, result.State)
	})
}
