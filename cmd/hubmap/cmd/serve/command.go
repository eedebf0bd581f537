// Package serve provides the HTTP API server command.
package serve

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/metrics"
	"github.com/agentstation/hubmap/internal/server"
)

// AppContext is the application surface the serve command needs. The
// collectors it returns are shared with the catalog session so /metrics
// reports fetches and HTTP traffic together.
type AppContext interface {
	application.Application
	Metrics() *metrics.Metrics
}

// NewCommand creates the serve command using app context.
func NewCommand(app AppContext) *cobra.Command {
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Aliases: []string{"server"},
		Short:   "Start the REST API server",
		Long: `Start a REST API server for the organization catalog.

Features:
  - Item listing with search, tag, facet and sort parameters (/api/v1/items)
  - Tag and facet choices per category (/api/v1/tags, /api/v1/facets)
  - Query state encoding and decoding (/api/v1/state/encode, /api/v1/state/decode)
  - Cached catalog repository badge (/api/v1/stats)
  - Rate limiting (requests per minute per IP)
  - CORS support for web applications
  - Request logging, request IDs and panic recovery
  - Graceful shutdown with connection draining
  - Health, readiness and Prometheus metrics endpoints`,
		Example: `  # Start on default port 8080
  hubmap serve

  # Enable CORS for specific origins
  hubmap serve --cors-origins "https://example.org,https://app.example.org"

  # Tighter rate limiting
  hubmap serve --rate-limit 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, app)
		},
	}

	// Server configuration flags
	cmd.Flags().Int("port", defaults.Port, "Server port")
	cmd.Flags().String("host", defaults.Host, "Bind address")

	// CORS flags
	cmd.Flags().Bool("cors", false, "Enable CORS for all origins")
	cmd.Flags().StringSlice("cors-origins", []string{}, "Allowed CORS origins (comma-separated)")

	// Performance flags
	cmd.Flags().Int("rate-limit", defaults.RateLimit, "Requests per minute per IP (0 to disable)")
	cmd.Flags().Duration("cache-ttl", defaults.CacheTTL, "Repository badge cache TTL")

	// Timeout flags
	cmd.Flags().Duration("read-timeout", defaults.ReadTimeout, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", defaults.WriteTimeout, "HTTP write timeout")
	cmd.Flags().Duration("idle-timeout", defaults.IdleTimeout, "HTTP idle timeout")

	// Features flags
	cmd.Flags().Bool("metrics", defaults.MetricsEnabled, "Enable metrics endpoint")
	cmd.Flags().String("prefix", defaults.PathPrefix, "API path prefix")

	return cmd
}

// runServer starts the API server and blocks until the command context is
// canceled.
func runServer(cmd *cobra.Command, app AppContext) error {
	cfg, err := parseConfig(cmd)
	if err != nil {
		return err
	}
	logger := app.Logger()

	logger.Info().
		Int("port", cfg.Port).
		Str("host", cfg.Host).
		Str("prefix", cfg.PathPrefix).
		Bool("cors", cfg.CORSEnabled).
		Int("rate_limit", cfg.RateLimit).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Starting API server")

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = app.Metrics()
	}

	srv, err := server.New(app, cfg, m)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "API server listening on %s:%d%s\n", cfg.Host, cfg.Port, cfg.PathPrefix)
	fmt.Fprintln(cmd.ErrOrStderr(), "   Press Ctrl+C to stop")

	if err := srv.ListenAndServe(cmd.Context()); err != nil {
		return err
	}

	logger.Info().Msg("Server stopped gracefully")
	return nil
}

// parseConfig parses command flags into server configuration. HTTP_PORT and
// HTTP_HOST override the flags.
func parseConfig(cmd *cobra.Command) (server.Config, error) {
	cfg := server.Config{
		Host:           mustGetString(cmd, "host"),
		Port:           mustGetInt(cmd, "port"),
		PathPrefix:     mustGetString(cmd, "prefix"),
		CORSEnabled:    mustGetBool(cmd, "cors"),
		CORSOrigins:    mustGetStringSlice(cmd, "cors-origins"),
		RateLimit:      mustGetInt(cmd, "rate-limit"),
		CacheTTL:       mustGetDuration(cmd, "cache-ttl"),
		ReadTimeout:    mustGetDuration(cmd, "read-timeout"),
		WriteTimeout:   mustGetDuration(cmd, "write-timeout"),
		IdleTimeout:    mustGetDuration(cmd, "idle-timeout"),
		MetricsEnabled: mustGetBool(cmd, "metrics"),
	}

	if envPort := os.Getenv("HTTP_PORT"); envPort != "" {
		port, err := parsePort(envPort)
		if err != nil {
			return cfg, err
		}
		cfg.Port = port
	}
	if envHost := os.Getenv("HTTP_HOST"); envHost != "" {
		cfg.Host = envHost
	}

	if _, err := parsePort(strconv.Itoa(cfg.Port)); err != nil {
		return cfg, err
	}
	if len(cfg.CORSOrigins) > 0 {
		cfg.CORSEnabled = true
	}

	return cfg, nil
}

// parsePort safely parses a port string to integer.
func parsePort(portStr string) (int, error) {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port number: %s", portStr)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port out of range: %d", port)
	}
	return port, nil
}

// mustGetInt retrieves an integer flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetString retrieves a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetBool retrieves a boolean flag value or panics if the flag doesn't exist.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetStringSlice retrieves a string slice flag value or panics if the flag doesn't exist.
func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}

// mustGetDuration retrieves a duration flag value or panics if the flag doesn't exist.
func mustGetDuration(cmd *cobra.Command, name string) time.Duration {
	val, err := cmd.Flags().GetDuration(name)
	if err != nil {
		panic(fmt.Sprintf("programming error: failed to get flag %q: %v", name, err))
	}
	return val
}
