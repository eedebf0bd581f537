// Package globals provides shared flag structures for CLI commands.
package globals

import (
	"net/url"

	"github.com/spf13/cobra"

	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/query"
)

// queryFlagKeys maps flag names to state keys; they are identical.
var queryFlagKeys = []string{
	query.KeyCategory,
	query.KeySearch,
	query.KeyTag,
	query.KeySort,
	query.KeyLibrary,
	query.KeySDK,
	query.KeyDataset,
	query.KeyModel,
	query.KeyTask,
	query.KeyModality,
}

// AddQueryFlags adds the catalog query flags to a command.
func AddQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(query.KeyCategory, "c", "",
		"Category: all, code, dataset, model, space, forkedCode")
	cmd.Flags().StringP(query.KeySearch, "s", "",
		"Case-insensitive search over ID, description and tags")
	cmd.Flags().StringP(query.KeyTag, "t", "",
		"Only items carrying this tag (case-insensitive)")
	cmd.Flags().String(query.KeySort, "",
		"Sort: lastModified, createdAt, name-asc, name-desc, popularity-desc, popularity-asc")
	cmd.Flags().String(query.KeyLibrary, "",
		"Model library facet (e.g. open_clip)")
	cmd.Flags().String(query.KeySDK, "",
		"Space SDK facet (e.g. gradio)")
	cmd.Flags().String(query.KeyDataset, "",
		"Linked dataset facet for models and spaces")
	cmd.Flags().String(query.KeyModel, "",
		"Linked model facet for spaces")
	cmd.Flags().String(query.KeyTask, "",
		"Task category facet for datasets (e.g. image-classification)")
	cmd.Flags().String(query.KeyModality, "",
		"Modality facet for datasets (e.g. image)")
	cmd.Flags().String("state", "",
		"Encoded query state; explicit flags override its keys")

	RegisterCategoryCompletion(cmd, query.KeyCategory)
	_ = cmd.RegisterFlagCompletionFunc(query.KeySort, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		keys := query.SortKeys()
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = string(k)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

// RegisterCategoryCompletion completes a category flag with the category names.
func RegisterCategoryCompletion(cmd *cobra.Command, flag string) {
	_ = cmd.RegisterFlagCompletionFunc(flag, func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		categories := catalog.Categories()
		out := make([]string, len(categories))
		for i, c := range categories {
			out[i] = string(c)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	})
}

// ParseQuery builds query params from the flags added by AddQueryFlags.
// Only flags set on the command line override the encoded --state.
// Invalid values revert to defaults.
func ParseQuery(cmd *cobra.Command) query.Params {
	explicit := url.Values{}
	for _, key := range queryFlagKeys {
		if !cmd.Flags().Changed(key) {
			continue
		}
		explicit.Set(key, mustGetString(cmd, key))
	}
	return query.Merge(mustGetString(cmd, "state"), explicit.Encode())
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
