package hubmap

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/hubmap/internal/metrics"
	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/errors"
)

// config holds the settings of a Client
type config struct {
	organization      string
	forkAllowList     []string
	adminRepo         string
	catalogRepo       string
	freshnessWindow   time.Duration
	maxItems          int
	detailConcurrency int
	requestsPerSecond float64

	githubToken string
	hubToken    string
	githubURL   string
	hubURL      string
	hubWebURL   string

	httpClient     *http.Client
	now            func() time.Time
	metricsEnabled bool
	metrics        *metrics.Metrics
	logger         *zerolog.Logger
}

// defaultConfig returns the settings used when no option overrides them
func defaultConfig() *config {
	return &config{
		organization:      constants.DefaultOrganization,
		adminRepo:         constants.DefaultAdminRepo,
		catalogRepo:       constants.DefaultCatalogRepo,
		freshnessWindow:   time.Duration(constants.DefaultFreshnessDays) * 24 * time.Hour,
		maxItems:          constants.DefaultMaxItems,
		detailConcurrency: constants.DefaultDetailConcurrency,
		requestsPerSecond: constants.DefaultRequestsPerSecond,
		githubURL:         constants.GitHubAPIURL,
		hubURL:            constants.HubAPIURL,
		hubWebURL:         constants.HubWebURL,
		now:               time.Now,
	}
}

// Option is a function that configures a Client
type Option func(*config) error

// WithOrganization sets the organization whose assets are cataloged
func WithOrganization(org string) Option {
	return func(c *config) error {
		org = strings.TrimSpace(org)
		if org == "" {
			return errors.NewValidationError("organization", org, "organization cannot be empty")
		}
		c.organization = org
		return nil
	}
}

// WithForkAllowList sets the forked repositories that are still cataloged.
// Matching ignores case.
func WithForkAllowList(names ...string) Option {
	return func(c *config) error {
		c.forkAllowList = slices.DeleteFunc(slices.Clone(names), func(n string) bool {
			return strings.TrimSpace(n) == ""
		})
		return nil
	}
}

// WithFreshnessWindow sets how long after creation an item is flagged new
func WithFreshnessWindow(window time.Duration) Option {
	return func(c *config) error {
		if window <= 0 {
			return errors.NewValidationError("freshness_window", window, "must be positive")
		}
		c.freshnessWindow = window
		return nil
	}
}

// WithMaxItems caps the number of items kept per category
func WithMaxItems(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.NewValidationError("max_items", n, "must be positive")
		}
		c.maxItems = n
		return nil
	}
}

// WithDetailConcurrency bounds concurrent model detail requests
func WithDetailConcurrency(n int) Option {
	return func(c *config) error {
		if n <= 0 || n > constants.MaxDetailConcurrency {
			return errors.NewValidationError("detail_concurrency", n, "must be between 1 and 64")
		}
		c.detailConcurrency = n
		return nil
	}
}

// WithRequestsPerSecond paces registry requests; 0 disables pacing
func WithRequestsPerSecond(rps float64) Option {
	return func(c *config) error {
		if rps < 0 {
			return errors.NewValidationError("requests_per_second", rps, "cannot be negative")
		}
		c.requestsPerSecond = rps
		return nil
	}
}

// WithGitHubToken authenticates GitHub requests, raising the rate limit
func WithGitHubToken(token string) Option {
	return func(c *config) error {
		c.githubToken = token
		return nil
	}
}

// WithHubToken authenticates Hugging Face Hub requests
func WithHubToken(token string) Option {
	return func(c *config) error {
		c.hubToken = token
		return nil
	}
}

// WithGitHubURL overrides the GitHub API base URL
func WithGitHubURL(url string) Option {
	return func(c *config) error {
		if url == "" {
			return errors.NewValidationError("github_api_url", url, "cannot be empty")
		}
		c.githubURL = url
		return nil
	}
}

// WithHubURL overrides the Hugging Face Hub API base URL
func WithHubURL(url string) Option {
	return func(c *config) error {
		if url == "" {
			return errors.NewValidationError("hub_api_url", url, "cannot be empty")
		}
		c.hubURL = url
		return nil
	}
}

// WithHubWebURL overrides the base of canonical hub links
func WithHubWebURL(url string) Option {
	return func(c *config) error {
		if url == "" {
			return errors.NewValidationError("hub_web_url", url, "cannot be empty")
		}
		c.hubWebURL = url
		return nil
	}
}

// WithAdminRepo sets the organization profile repository excluded from code listings
func WithAdminRepo(name string) Option {
	return func(c *config) error {
		c.adminRepo = name
		return nil
	}
}

// WithCatalogRepo sets the repository reported by RepositoryStats, either
// "owner/name" or a bare name owned by the organization
func WithCatalogRepo(repo string) Option {
	return func(c *config) error {
		if strings.TrimSpace(repo) == "" {
			return errors.NewValidationError("catalog_repo", repo, "cannot be empty")
		}
		c.catalogRepo = repo
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for registry requests
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) error {
		c.httpClient = hc
		return nil
	}
}

// WithClock sets the reference time used for the new flag
func WithClock(now func() time.Time) Option {
	return func(c *config) error {
		if now == nil {
			return errors.NewValidationError("clock", nil, "cannot be nil")
		}
		c.now = now
		return nil
	}
}

// WithMetrics enables Prometheus metrics for loading
func WithMetrics(enabled bool) Option {
	return func(c *config) error {
		c.metricsEnabled = enabled
		return nil
	}
}

// WithMetricsCollector records loading metrics on m, letting a server share
// one registry with the client.
func WithMetricsCollector(m *metrics.Metrics) Option {
	return func(c *config) error {
		if m == nil {
			return errors.NewValidationError("metrics", nil, "cannot be nil")
		}
		c.metricsEnabled = true
		c.metrics = m
		return nil
	}
}

// WithLogger sets the logger used for loading diagnostics
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}
