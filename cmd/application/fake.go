package application

import (
	"context"
	"net/http"
	"sync"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/errors"
	"github.com/agentstation/hubmap/pkg/query"
)

// FakeClient is an in-memory hubmap.Client for command tests. Loading a
// category publishes its entry from Items, or fails with its entry from
// Errors. Queries run through the real query engine.
type FakeClient struct {
	Org      string
	Items    map[catalog.Category][]catalog.Item
	Errors   map[catalog.Category]error
	Stats    hubmap.RepositoryStats
	StatsErr error

	once     sync.Once
	store    *catalog.Store
	engine   *query.Engine
	mu       sync.Mutex
	searches []query.Params
}

var _ hubmap.Client = (*FakeClient)(nil)

func (f *FakeClient) init() {
	f.once.Do(func() {
		f.store = catalog.NewStore()
		f.engine = query.NewEngine(f.store)
	})
}

// EnsureLoaded implements hubmap.Client.
func (f *FakeClient) EnsureLoaded(ctx context.Context, category catalog.Category) ([]catalog.Item, error) {
	f.init()

	switch category {
	case catalog.CategoryAll:
		var errs []error
		var all []catalog.Item
		for _, c := range catalog.SourceCategories() {
			items, err := f.EnsureLoaded(ctx, c)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			all = append(all, items...)
		}
		return all, errors.Join(errs...)
	case catalog.CategoryForkedCode:
		return f.EnsureLoaded(ctx, catalog.CategoryCode)
	}

	if err := f.Errors[category]; err != nil {
		return nil, errors.NewFetchError(string(category), "fake", err)
	}
	f.store.Publish(category, f.Items[category])
	items, _ := f.store.Items(category)
	return items, nil
}

// Search implements hubmap.Client.
func (f *FakeClient) Search(ctx context.Context, params query.Params) ([]catalog.Item, error) {
	params = params.Normalized()

	f.mu.Lock()
	f.searches = append(f.searches, params)
	f.mu.Unlock()

	_, err := f.EnsureLoaded(ctx, params.Category)
	if err != nil && params.Category != catalog.CategoryAll {
		return nil, err
	}
	return f.engine.Evaluate(params), err
}

// Searches returns the normalized params of every Search call.
func (f *FakeClient) Searches() []query.Params {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]query.Params(nil), f.searches...)
}

// Evaluate implements hubmap.Client.
func (f *FakeClient) Evaluate(params query.Params) []catalog.Item {
	f.init()
	return f.engine.Evaluate(params)
}

// Tags implements hubmap.Client.
func (f *FakeClient) Tags(category catalog.Category) []string {
	f.init()
	return f.engine.Tags(category)
}

// Facets implements hubmap.Client.
func (f *FakeClient) Facets(category catalog.Category) query.Facets {
	f.init()
	return f.engine.Facets(category)
}

// RepositoryStats implements hubmap.Client.
func (f *FakeClient) RepositoryStats(context.Context) (hubmap.RepositoryStats, error) {
	return f.Stats, f.StatsErr
}

// Loaded implements hubmap.Client.
func (f *FakeClient) Loaded() map[catalog.Category]bool {
	f.init()
	return f.store.LoadedCategories()
}

// Organization implements hubmap.Client.
func (f *FakeClient) Organization() string {
	if f.Org == "" {
		return "imageomics"
	}
	return f.Org
}

// MetricsHandler implements hubmap.Client.
func (f *FakeClient) MetricsHandler() http.Handler { return nil }

// OnCategoryLoaded implements hubmap.Client. Hooks are ignored.
func (f *FakeClient) OnCategoryLoaded(hubmap.CategoryLoadedHook) {}
