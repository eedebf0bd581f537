package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubmap/cmd/application"
)

func TestVersion(t *testing.T) {
	cmd := NewCommand(&application.Mock{VersionValue: "1.2.3"})
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	out := stdout.String()
	assert.Contains(t, out, "hubmap version 1.2.3")
	assert.Contains(t, out, "commit: unknown")
	assert.Contains(t, out, "platform: ")
}
