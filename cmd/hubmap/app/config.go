package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/errors"
)

// Config holds the application configuration loaded from various sources
// including config files, environment variables, and .env files.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	// Config file
	ConfigFile string

	// Catalog configuration
	Organization      string
	GitHubAPIURL      string
	HubAPIURL         string
	HubWebURL         string
	ForkAllowList     []string
	AdminRepo         string
	CatalogRepo       string
	MaxItems          int
	FreshnessDays     int
	DetailConcurrency int
	RequestsPerSecond float64
	Metrics           bool

	// Credentials
	GitHubToken string
	HubToken    string

	// Logging configuration
	LogLevel     string // from LOG_LEVEL or the config file
	LogLevelFlag string // from --log-level
	LogFormat    string
	LogOutput    string
}

// LoadConfig loads configuration from all sources in order of precedence:
// 1. Command-line flags (handled by cobra)
// 2. Environment variables
// 3. .env files
// 4. Config file (~/.hubmap.yaml or ./.hubmap.yaml)
// 5. Defaults
func LoadConfig(configFile string) (*Config, error) {
	loadEnvFiles()

	v := newViper()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".hubmap")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit --config must exist; the search paths are optional.
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.WrapParse("yaml", configFile, err)
		}
	}

	return configFromViper(v), nil
}

// newViper returns a viper instance with defaults and environment bindings.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("organization", constants.DefaultOrganization)
	v.SetDefault("github_api_url", constants.GitHubAPIURL)
	v.SetDefault("hub_api_url", constants.HubAPIURL)
	v.SetDefault("hub_web_url", constants.HubWebURL)
	v.SetDefault("fork_allow_list", []string{})
	v.SetDefault("admin_repo", constants.DefaultAdminRepo)
	v.SetDefault("catalog_repo", constants.DefaultCatalogRepo)
	v.SetDefault("max_items", constants.DefaultMaxItems)
	v.SetDefault("freshness_days", constants.DefaultFreshnessDays)
	v.SetDefault("detail_concurrency", constants.DefaultDetailConcurrency)
	v.SetDefault("requests_per_second", constants.DefaultRequestsPerSecond)
	v.SetDefault("metrics", true)
	v.SetDefault("log_level", "")
	v.SetDefault("log_format", "auto")
	v.SetDefault("log_output", "stderr")

	v.SetEnvPrefix("HUBMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Tokens use the names the registries document, without the prefix.
	_ = v.BindEnv("github_token", "GITHUB_TOKEN", "HUBMAP_GITHUB_TOKEN")
	_ = v.BindEnv("hub_token", "HF_TOKEN", "HUBMAP_HUB_TOKEN")
	_ = v.BindEnv("log_level", "LOG_LEVEL", "HUBMAP_LOG_LEVEL")
	_ = v.BindEnv("log_format", "LOG_FORMAT", "HUBMAP_LOG_FORMAT")
	_ = v.BindEnv("log_output", "LOG_OUTPUT", "HUBMAP_LOG_OUTPUT")

	return v
}

func configFromViper(v *viper.Viper) *Config {
	return &Config{
		ConfigFile:        v.ConfigFileUsed(),
		Organization:      v.GetString("organization"),
		GitHubAPIURL:      v.GetString("github_api_url"),
		HubAPIURL:         v.GetString("hub_api_url"),
		HubWebURL:         v.GetString("hub_web_url"),
		ForkAllowList:     splitList(v.GetStringSlice("fork_allow_list")),
		AdminRepo:         v.GetString("admin_repo"),
		CatalogRepo:       v.GetString("catalog_repo"),
		MaxItems:          v.GetInt("max_items"),
		FreshnessDays:     v.GetInt("freshness_days"),
		DetailConcurrency: v.GetInt("detail_concurrency"),
		RequestsPerSecond: v.GetFloat64("requests_per_second"),
		Metrics:           v.GetBool("metrics"),
		GitHubToken:       v.GetString("github_token"),
		HubToken:          v.GetString("hub_token"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		LogOutput:         v.GetString("log_output"),
	}
}

// ClientOptions translates the configuration into hubmap options.
func (c *Config) ClientOptions() []hubmap.Option {
	opts := []hubmap.Option{
		hubmap.WithOrganization(c.Organization),
		hubmap.WithGitHubURL(c.GitHubAPIURL),
		hubmap.WithHubURL(c.HubAPIURL),
		hubmap.WithHubWebURL(c.HubWebURL),
		hubmap.WithAdminRepo(c.AdminRepo),
		hubmap.WithCatalogRepo(c.CatalogRepo),
		hubmap.WithMaxItems(c.MaxItems),
		hubmap.WithFreshnessWindow(time.Duration(c.FreshnessDays) * 24 * time.Hour),
		hubmap.WithDetailConcurrency(c.DetailConcurrency),
		hubmap.WithRequestsPerSecond(c.RequestsPerSecond),
	}
	if len(c.ForkAllowList) > 0 {
		opts = append(opts, hubmap.WithForkAllowList(c.ForkAllowList...))
	}
	if c.GitHubToken != "" {
		opts = append(opts, hubmap.WithGitHubToken(c.GitHubToken))
	}
	if c.HubToken != "" {
		opts = append(opts, hubmap.WithHubToken(c.HubToken))
	}
	return opts
}

// UpdateFromFlags updates config values from parsed command flags.
// This should be called after cobra parses flags to ensure flag
// values take precedence over config file and env vars.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel, org string) {
	c.Verbose = verbose
	c.Quiet = quiet
	c.NoColor = noColor
	if format != "" {
		c.Format = format
	}
	c.LogLevelFlag = logLevel
	if org != "" {
		c.Organization = org
	}
}

// splitList flattens comma-separated entries, as environment variables
// arrive as a single string.
func splitList(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, name := range strings.Split(entry, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// loadEnvFiles loads environment variables from .env files.
// .env.local does not override values .env already set, so it only fills gaps.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}
