// Package constants provides shared constants used throughout the hubmap codebase.
// This includes timeouts, limits, registry endpoints and catalog defaults that
// must agree between the library, the server and the CLI.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the timeout for a single request to a registry API
	DefaultHTTPTimeout = 30 * time.Second

	// CategoryLoadTimeout bounds loading one category including model detail fan-out
	CategoryLoadTimeout = 2 * time.Minute

	// CommandTimeout is the default timeout for CLI commands
	CommandTimeout = 5 * time.Minute

	// ServerReadTimeout is the HTTP server read timeout
	ServerReadTimeout = 15 * time.Second

	// ServerWriteTimeout is the HTTP server write timeout; it must cover a cold "all" load
	ServerWriteTimeout = 3 * time.Minute

	// ServerIdleTimeout is the HTTP server idle timeout
	ServerIdleTimeout = 60 * time.Second

	// ShutdownTimeout is the grace period for server shutdown
	ShutdownTimeout = 10 * time.Second
)

// File permission constants
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Catalog defaults
const (
	// DefaultOrganization is the organization whose assets are cataloged
	DefaultOrganization = "imageomics"

	// DefaultMaxItems caps how many items a single category keeps
	DefaultMaxItems = 100

	// DefaultFreshnessDays is the window in which an item is flagged new
	DefaultFreshnessDays = 30

	// DefaultAdminRepo is the organization profile repository excluded from code listings
	DefaultAdminRepo = ".github"

	// DefaultCatalogRepo is the catalog's own repository used for the stats badge
	DefaultCatalogRepo = "catalog"

	// PlaceholderDescription is used when a record has no description at all
	PlaceholderDescription = "No description provided."

	// GitHubPerPage is the page size requested from the repository listing
	GitHubPerPage = 100

	// DefaultDetailConcurrency bounds concurrent model detail requests
	DefaultDetailConcurrency = 8

	// MaxDetailConcurrency is the largest accepted detail concurrency
	MaxDetailConcurrency = 64
)

// Registry endpoints
const (
	// GitHubAPIURL is the base URL of the code-hosting API
	GitHubAPIURL = "https://api.github.com"

	// HubAPIURL is the base URL of the model hub API
	HubAPIURL = "https://huggingface.co/api"

	// HubWebURL is the base URL used to build canonical hub links
	HubWebURL = "https://huggingface.co"

	// UserAgent is sent with every registry request
	UserAgent = "hubmap"
)

// Rate limiting constants
const (
	// DefaultRequestsPerSecond paces outbound registry requests; 0 disables pacing
	DefaultRequestsPerSecond = 10

	// BurstSize is the token bucket burst size for outbound requests
	BurstSize = 10

	// ServerRequestsPerMinute is the default per-client limit of the HTTP API
	ServerRequestsPerMinute = 120
)

// Cache constants
const (
	// StatsCacheTTL is how long the repository stats badge is served from cache
	StatsCacheTTL = 15 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 5 * time.Minute
)
