package globals

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/query"
)

func parse(t *testing.T, args ...string) query.Params {
	t.Helper()
	var got query.Params
	cmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, _ []string) error {
			got = ParseQuery(cmd)
			return nil
		},
	}
	AddQueryFlags(cmd)
	cmd.SetArgs(append([]string{}, args...))
	require.NoError(t, cmd.Execute())
	return got
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want query.Params
	}{
		{
			name: "defaults",
			want: query.DefaultParams(),
		},
		{
			name: "explicit flags",
			args: []string{"-c", "space", "-s", "fish", "-t", "vision", "--sdk", "gradio", "--model", "imageomics/bioclip"},
			want: query.Params{Category: catalog.CategorySpace, Search: "fish", Tag: "vision", Sort: query.SortLastModified, SDK: "gradio", Model: "imageomics/bioclip"},
		},
		{
			name: "state only",
			args: []string{"--state", "category=model&library=open_clip&sort=name-desc"},
			want: query.Params{Category: catalog.CategoryModel, Library: "open_clip", Sort: query.SortNameDesc},
		},
		{
			name: "explicit flag overrides state key",
			args: []string{"--state", "category=model&tag=clip", "--category", "dataset"},
			want: query.Params{Category: catalog.CategoryDataset, Tag: "clip", Sort: query.SortLastModified},
		},
		{
			name: "explicitly empty flag clears state key",
			args: []string{"--state", "category=model&tag=clip", "--tag", ""},
			want: query.Params{Category: catalog.CategoryModel, Sort: query.SortLastModified},
		},
		{
			name: "invalid values revert",
			args: []string{"--category", "planets", "--sort", "random"},
			want: query.DefaultParams(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parse(t, tt.args...))
		})
	}
}

func TestCompletion(t *testing.T) {
	complete := func(args ...string) string {
		cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
		AddQueryFlags(cmd)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{cobra.ShellCompRequestCmd}, args...))
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	categories := complete("--category", "")
	assert.Contains(t, categories, "forkedCode")
	assert.Contains(t, categories, "dataset")

	assert.Contains(t, complete("--sort", ""), "popularity-desc")
}
