// Package hubmap aggregates the code repositories, datasets, models and demo
// spaces of one organization into a single searchable catalog.
//
// Repositories come from GitHub; datasets, models and spaces come from the
// Hugging Face Hub. Each category is fetched at most once per Client, on
// first use, and queries run against whatever has been loaded so far.
//
// Example usage:
//
//	hm, err := hubmap.New(
//	    hubmap.WithOrganization("imageomics"),
//	    hubmap.WithForkAllowList("Fish-Vista", "PhyloNN"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	items, err := hm.Search(ctx, query.Params{
//	    Category: catalog.CategoryModel,
//	    Tag:      "clip",
//	    Sort:     query.SortPopularityDesc,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, item := range items {
//	    fmt.Printf("%s (%d likes)\n", item.DisplayName, item.Popularity)
//	}
package hubmap

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/agentstation/hubmap/internal/fetch"
	"github.com/agentstation/hubmap/internal/metrics"
	"github.com/agentstation/hubmap/internal/sources"
	"github.com/agentstation/hubmap/internal/sources/github"
	"github.com/agentstation/hubmap/internal/sources/huggingface"
	"github.com/agentstation/hubmap/internal/transport"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/logging"
	"github.com/agentstation/hubmap/pkg/normalize"
	"github.com/agentstation/hubmap/pkg/query"
)

// RepositoryStats is the informational badge of the catalog repository.
type RepositoryStats = sources.RepositoryStats

// Client is one catalog session.
type Client interface {
	// EnsureLoaded fetches category if it has not been loaded yet and
	// returns its items in source order.
	EnsureLoaded(ctx context.Context, category catalog.Category) ([]catalog.Item, error)

	// Search ensures the queried category is loaded, then evaluates params.
	// For the "all" category, categories that failed to load are reported
	// in the error while the loaded ones are still evaluated.
	Search(ctx context.Context, params query.Params) ([]catalog.Item, error)

	// Evaluate runs params against the already-loaded categories only.
	Evaluate(params query.Params) []catalog.Item

	// Tags returns the tag choices for category from loaded data.
	Tags(category catalog.Category) []string

	// Facets returns the facet choices for category from loaded data.
	Facets(category catalog.Category) query.Facets

	// RepositoryStats reports stars, forks and latest release of the
	// catalog repository.
	RepositoryStats(ctx context.Context) (RepositoryStats, error)

	// Loaded reports which source categories are loaded.
	Loaded() map[catalog.Category]bool

	// Organization returns the organization being cataloged.
	Organization() string

	// MetricsHandler exposes the Prometheus metrics, or nil when disabled.
	MetricsHandler() http.Handler

	// OnCategoryLoaded registers a callback for when a category finishes loading
	OnCategoryLoaded(CategoryLoadedHook)
}

// client is the internal implementation of the Client interface
type client struct {
	config       *config
	store        *catalog.Store
	orchestrator *fetch.Orchestrator
	engine       *query.Engine
	stats        sources.StatsRegistry
	metrics      *metrics.Metrics
	hooks        *hooks
}

// New creates a new Client with the given options
func New(opts ...Option) (Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}

	transportOpts := []transport.Option{
		transport.WithHTTPClient(cfg.httpClient),
		transport.WithRateLimit(cfg.requestsPerSecond, constants.BurstSize),
	}
	gh := github.NewClient(cfg.githubURL, append(transportOpts, transport.WithToken(cfg.githubToken))...)
	hf := huggingface.NewClient(cfg.hubURL, append(transportOpts, transport.WithToken(cfg.hubToken))...)

	c := &client{
		config: cfg,
		store:  catalog.NewStore(),
		stats:  gh,
		hooks:  newHooks(),
	}
	switch {
	case cfg.metrics != nil:
		c.metrics = cfg.metrics
	case cfg.metricsEnabled:
		c.metrics = metrics.New()
	}

	normalizer := &normalize.Normalizer{
		Window:    cfg.freshnessWindow,
		Now:       cfg.now,
		HubWebURL: cfg.hubWebURL,
	}
	fetchOpts := []fetch.Option{fetch.WithNormalizer(normalizer)}
	if c.metrics != nil {
		fetchOpts = append(fetchOpts, fetch.WithMetrics(c.metrics))
	}
	c.orchestrator = fetch.New(c.store, gh, hf, fetch.Config{
		Organization:      cfg.organization,
		ForkAllowList:     cfg.forkAllowList,
		AdminRepo:         cfg.adminRepo,
		MaxItems:          cfg.maxItems,
		DetailConcurrency: cfg.detailConcurrency,
	}, fetchOpts...)
	c.orchestrator.OnLoaded(c.hooks.triggerCategoryLoaded)

	c.engine = query.NewEngine(c.store,
		query.WithForkAllowList(cfg.forkAllowList),
		query.WithFreshnessWindow(cfg.freshnessWindow),
		query.WithClock(cfg.now),
	)

	return c, nil
}

func (c *client) EnsureLoaded(ctx context.Context, category catalog.Category) ([]catalog.Item, error) {
	return c.orchestrator.EnsureLoaded(c.context(ctx), category)
}

func (c *client) Search(ctx context.Context, params query.Params) ([]catalog.Item, error) {
	params = params.Normalized()
	_, err := c.orchestrator.EnsureLoaded(c.context(ctx), params.Category)
	if err != nil && params.Category != catalog.CategoryAll {
		return nil, err
	}
	return c.engine.Evaluate(params), err
}

func (c *client) Evaluate(params query.Params) []catalog.Item {
	return c.engine.Evaluate(params)
}

func (c *client) Tags(category catalog.Category) []string {
	return c.engine.Tags(category)
}

func (c *client) Facets(category catalog.Category) query.Facets {
	return c.engine.Facets(category)
}

func (c *client) RepositoryStats(ctx context.Context) (RepositoryStats, error) {
	owner, repo := c.catalogRepository()
	ctx = logging.WithOperation(c.context(ctx), "repository_stats")
	return c.stats.RepositoryStats(ctx, owner, repo)
}

func (c *client) Loaded() map[catalog.Category]bool {
	return c.store.LoadedCategories()
}

func (c *client) Organization() string {
	return c.config.organization
}

func (c *client) MetricsHandler() http.Handler {
	if c.metrics == nil {
		return nil
	}
	return c.metrics.Handler()
}

func (c *client) OnCategoryLoaded(fn CategoryLoadedHook) {
	c.hooks.OnCategoryLoaded(fn)
}

// catalogRepository splits the configured catalog repository into owner and
// name; a bare name belongs to the organization.
func (c *client) catalogRepository() (string, string) {
	if owner, repo, ok := strings.Cut(c.config.catalogRepo, "/"); ok {
		return owner, repo
	}
	return c.config.organization, c.config.catalogRepo
}

func (c *client) context(ctx context.Context) context.Context {
	if c.config.logger != nil {
		ctx = logging.WithLogger(ctx, c.config.logger)
	}
	return ctx
}
