package state

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/query"
)

func execute(t *testing.T, args ...string) Result {
	t.Helper()
	app := &application.Mock{OutputFormatFunc: func() string { return "json" }}

	cmd := NewCommand(app)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	var result Result
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	return result
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"defaults encode empty", []string{"encode"}, ""},
		{"sorted keys", []string{"encode", "--sort", "name-asc", "--category", "model"}, "category=model&sort=name-asc"},
		{"default values omitted", []string{"encode", "--category", "all", "--sort", "lastModified"}, ""},
		{"state merged with flags", []string{"encode", "--state", "category=space&sdk=gradio", "--model", "imageomics/bioclip"}, "category=space&model=imageomics%2Fbioclip&sdk=gradio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, execute(t, tt.args...).State)
		})
	}
}

func TestDecode(t *testing.T) {
	result := execute(t, "decode", "category=model&sort=name-asc")
	assert.Equal(t, query.Params{Category: catalog.CategoryModel, Sort: query.SortNameAsc}, result.Params)
	assert.Equal(t, "category=model&sort=name-asc", result.State)

	result = execute(t, "decode", "/catalog/?category=code&tag=fish#category=dataset")
	assert.Equal(t, catalog.CategoryDataset, result.Params.Category)
	assert.Equal(t, "fish", result.Params.Tag)

	result = execute(t, "decode", "category=nope&sort=sideways")
	assert.Equal(t, query.DefaultParams(), result.Params)
	assert.Empty(t, result.State)
}

func TestRoundTrip(t *testing.T) {
	encoded := execute(t, "encode", "--category", "space", "--search", "fish tank", "--dataset", "imageomics/fish-vista")
	decoded := execute(t, "decode", encoded.State)
	assert.Equal(t, encoded.Params, decoded.Params)
}
