package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/pkg/catalog"
)

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()
	isolate(t)

	logger := zerolog.Nop()
	opts = append([]Option{WithLogger(&logger)}, opts...)
	a, err := New("1.0.0", "abc123", "2025-06-01", "test", opts...)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return a
}

// execute runs the root command with output captured.
func execute(t *testing.T, a *App, args ...string) (string, error) {
	t.Helper()
	root := a.createRootCommand()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

// TestApp_New verifies version information and defaults.
func TestApp_New(t *testing.T) {
	a := newTestApp(t)

	if a.Version() != "1.0.0" || a.Commit() != "abc123" || a.Date() != "2025-06-01" || a.BuiltBy() != "test" {
		t.Errorf("version info not set: %s %s %s %s", a.Version(), a.Commit(), a.Date(), a.BuiltBy())
	}
	if a.Config() == nil {
		t.Fatal("Config() returned nil")
	}
	if a.Logger() == nil {
		t.Fatal("Logger() returned nil")
	}
	if a.OutputFormat() != "" {
		t.Errorf("OutputFormat() = %q, want auto-detect", a.OutputFormat())
	}
}

// TestApp_WithConfigNil verifies options are validated.
func TestApp_WithConfigNil(t *testing.T) {
	isolate(t)
	if _, err := New("dev", "", "", "", WithConfig(nil)); err == nil {
		t.Error("expected error for nil config")
	}
}

// TestApp_Client_Singleton verifies one session is shared across goroutines.
func TestApp_Client_Singleton(t *testing.T) {
	a := newTestApp(t)

	var wg sync.WaitGroup
	clients := make([]hubmap.Client, 10)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := a.Client()
			if err != nil {
				t.Errorf("Client() failed: %v", err)
				return
			}
			clients[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(clients); i++ {
		if clients[i] != clients[0] {
			t.Fatal("Client() returned different instances")
		}
	}
	if a.Metrics() == nil {
		t.Error("Metrics() should be shared when enabled")
	}
}

// TestApp_Client_InvalidConfig verifies option errors surface.
func TestApp_Client_InvalidConfig(t *testing.T) {
	a := newTestApp(t)
	a.Config().Organization = ""

	if _, err := a.Client(); err == nil {
		t.Error("expected error for empty organization")
	}
}

// TestApp_MetricsDisabled verifies no collectors are created.
func TestApp_MetricsDisabled(t *testing.T) {
	a := newTestApp(t)
	a.Config().Metrics = false

	if a.Metrics() != nil {
		t.Error("Metrics() should be nil when disabled")
	}
	if _, err := a.Client(); err != nil {
		t.Fatalf("Client() failed: %v", err)
	}
}

// TestApp_Shutdown verifies shutdown with and without a session.
func TestApp_Shutdown(t *testing.T) {
	a := newTestApp(t)
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() without client failed: %v", err)
	}

	a = newTestApp(t, WithClient(&application.FakeClient{}))
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}

// TestExecute_GlobalFlags verifies persistent flags reach the commands.
func TestExecute_GlobalFlags(t *testing.T) {
	fake := &application.FakeClient{
		Items: map[catalog.Category][]catalog.Item{
			catalog.CategoryCode: {{ID: "imageomics/pybioclip", Category: catalog.CategoryCode, DisplayName: "pybioclip"}},
		},
	}
	a := newTestApp(t, WithClient(fake))

	out, err := execute(t, a, "--org", "acme", "-o", "json", "list", "--category", "code")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	var result struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.Count != 1 {
		t.Errorf("count = %d, want 1", result.Count)
	}
	if a.Config().Organization != "acme" {
		t.Errorf("Organization = %q, want acme", a.Config().Organization)
	}
	if a.OutputFormat() != "json" {
		t.Errorf("OutputFormat() = %q, want json", a.OutputFormat())
	}
}

// TestExecute_InvalidFormat verifies --format is validated before running.
func TestExecute_InvalidFormat(t *testing.T) {
	a := newTestApp(t, WithClient(&application.FakeClient{}))
	if _, err := execute(t, a, "-o", "xml", "stats"); err == nil {
		t.Error("expected error for invalid format")
	}
}

// TestExecute_Version verifies the version subcommand.
func TestExecute_Version(t *testing.T) {
	a := newTestApp(t)
	out, err := execute(t, a, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "hubmap version 1.0.0") {
		t.Errorf("unexpected version output: %s", out)
	}
}

// TestExecute_Stats runs a real session against a fake GitHub API.
func TestExecute_Stats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/catalog", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"full_name":"acme/catalog","html_url":"https://github.com/acme/catalog","stargazers_count":12,"forks_count":3}`))
	})
	mux.HandleFunc("/repos/acme/catalog/releases/latest", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := newTestApp(t)
	a.Config().GitHubAPIURL = srv.URL
	a.Config().RequestsPerSecond = 0

	out, err := execute(t, a, "--org", "acme", "-o", "json", "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	var stats hubmap.RepositoryStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if stats.Repository != "acme/catalog" || stats.Stars != 12 || stats.Forks != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
