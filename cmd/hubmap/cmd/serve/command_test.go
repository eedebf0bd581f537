package serve

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/metrics"
	"github.com/agentstation/hubmap/internal/server"
)

type testApp struct {
	*application.Mock
	metrics *metrics.Metrics
}

func (a *testApp) Metrics() *metrics.Metrics { return a.metrics }

func newTestApp() *testApp {
	client := &application.FakeClient{}
	return &testApp{
		Mock: &application.Mock{
			ClientFunc: func() (hubmap.Client, error) { return client, nil },
		},
		metrics: metrics.New(),
	}
}

func parse(t *testing.T, args ...string) (server.Config, error) {
	t.Helper()
	var cfg server.Config
	var parseErr error
	cmd := NewCommand(newTestApp())
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		cfg, parseErr = parseConfig(cmd)
		return nil
	}
	cmd.SetArgs(append([]string{}, args...))
	require.NoError(t, cmd.Execute())
	return cfg, parseErr
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)

	defaults := server.DefaultConfig()
	assert.Equal(t, defaults.Port, cfg.Port)
	assert.Equal(t, defaults.Host, cfg.Host)
	assert.Equal(t, defaults.PathPrefix, cfg.PathPrefix)
	assert.Equal(t, defaults.RateLimit, cfg.RateLimit)
	assert.Equal(t, defaults.CacheTTL, cfg.CacheTTL)
	assert.True(t, cfg.MetricsEnabled)
	assert.False(t, cfg.CORSEnabled)
}

func TestParseConfigFlags(t *testing.T) {
	cfg, err := parse(t,
		"--port", "3000",
		"--cors-origins", "https://a.example,https://b.example",
		"--rate-limit", "0",
		"--cache-ttl", "1m",
		"--metrics=false",
		"--prefix", "/v2",
	)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.True(t, cfg.CORSEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Zero(t, cfg.RateLimit)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, "/v2", cfg.PathPrefix)
}

func TestParseConfigEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("HTTP_HOST", "0.0.0.0")

	cfg, err := parse(t, "--port", "3000")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)

	t.Setenv("HTTP_PORT", "http")
	_, err = parse(t)
	assert.Error(t, err)
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"8080", 8080, false},
		{"1", 1, false},
		{"0", 0, true},
		{"65536", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePort(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	cmd := NewCommand(newTestApp())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--host", "127.0.0.1", "--port", strconv.Itoa(port)})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop after cancel")
	}
}
