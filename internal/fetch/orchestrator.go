// Package fetch loads catalog categories from the registries into a
// catalog.Store, at most once per category per session.
package fetch

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/hubmap/internal/metrics"
	"github.com/agentstation/hubmap/internal/sources"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/errors"
	"github.com/agentstation/hubmap/pkg/logging"
	"github.com/agentstation/hubmap/pkg/normalize"
)

// Config controls what the orchestrator fetches.
type Config struct {
	Organization      string
	ForkAllowList     []string
	AdminRepo         string
	MaxItems          int
	DetailConcurrency int
}

// LoadedFunc is called once after a source category is published.
type LoadedFunc func(category catalog.Category, items []catalog.Item)

// Orchestrator issues the registry requests for a category, normalizes the
// results and publishes them to the store.
type Orchestrator struct {
	cfg        Config
	store      *catalog.Store
	code       sources.CodeRegistry
	hub        sources.HubRegistry
	normalizer *normalize.Normalizer
	metrics    *metrics.Metrics

	flight singleflight.Group

	loadsMu sync.Mutex
	loads   map[catalog.Category]*sharedLoad

	mu       sync.RWMutex
	onLoaded []LoadedFunc
}

// sharedLoad is the context a single-flight load runs on. It is detached
// from every caller and canceled only once no caller is waiting for it.
type sharedLoad struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// abandonedError marks a load canceled because all of its callers left.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }

func (e *abandonedError) Unwrap() error { return e.err }

// maxLoadAttempts bounds how often a caller rejoins after the load it was
// waiting on was abandoned by everyone else.
const maxLoadAttempts = 3

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records load metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.normalizer = n
		}
	}
}

// New creates an orchestrator publishing into store.
func New(store *catalog.Store, code sources.CodeRegistry, hub sources.HubRegistry, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = constants.DefaultMaxItems
	}
	if cfg.DetailConcurrency <= 0 {
		cfg.DetailConcurrency = constants.DefaultDetailConcurrency
	}
	if cfg.AdminRepo == "" {
		cfg.AdminRepo = constants.DefaultAdminRepo
	}

	o := &Orchestrator{
		cfg:        cfg,
		store:      store,
		code:       code,
		hub:        hub,
		normalizer: normalize.New(),
		loads:      make(map[catalog.Category]*sharedLoad),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnLoaded registers a callback invoked after a category is published.
func (o *Orchestrator) OnLoaded(fn LoadedFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onLoaded = append(o.onLoaded, fn)
}

// Store returns the store the orchestrator publishes into.
func (o *Orchestrator) Store() *catalog.Store {
	return o.store
}

// EnsureLoaded returns the items of category, fetching it first if it has
// not been loaded in this session. Concurrent first-time calls for the same
// category share one fetch. For CategoryAll the four source categories load
// concurrently; the items of the categories that loaded are returned
// together with the joined errors of those that did not.
func (o *Orchestrator) EnsureLoaded(ctx context.Context, category catalog.Category) ([]catalog.Item, error) {
	switch {
	case category == catalog.CategoryAll:
		return o.ensureAll(ctx)
	case category == catalog.CategoryForkedCode:
		code, err := o.ensureSource(ctx, catalog.CategoryCode)
		if err != nil {
			return nil, err
		}
		return catalog.ForkedSubset(code, o.cfg.ForkAllowList), nil
	case category.IsSource():
		return o.ensureSource(ctx, category)
	default:
		return nil, errors.NewValidationError("category", string(category), "unknown category")
	}
}

func (o *Orchestrator) ensureSource(ctx context.Context, category catalog.Category) ([]catalog.Item, error) {
	if items, ok := o.store.Items(category); ok {
		return items, nil
	}

	var err error
	for attempt := 0; attempt < maxLoadAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.NewFetchError(string(category), sourceFor(category), errors.Join(errors.ErrCanceled, ctxErr))
		}

		err = o.awaitLoad(ctx, category)
		var abandoned *abandonedError
		if !errors.As(err, &abandoned) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	items, _ := o.store.Items(category)
	return items, nil
}

// awaitLoad joins the shared load of category and waits for it or for ctx.
// A caller that leaves early does not cancel the load for the others.
func (o *Orchestrator) awaitLoad(ctx context.Context, category catalog.Category) error {
	shared := o.joinLoad(ctx, category)
	defer o.leaveLoad(category, shared)

	ch := o.flight.DoChan(string(category), func() (any, error) {
		if o.store.Loaded(category) {
			return nil, nil
		}
		err := o.load(shared.ctx, category)
		if err != nil && shared.ctx.Err() == context.Canceled {
			return nil, &abandonedError{err: err}
		}
		return nil, err
	})

	select {
	case res := <-ch:
		if res.Shared && o.metrics != nil {
			o.metrics.SharedLoadWaiters.Inc()
		}
		return res.Err
	case <-ctx.Done():
		return errors.NewFetchError(string(category), sourceFor(category), errors.Join(errors.ErrCanceled, ctx.Err()))
	}
}

func (o *Orchestrator) joinLoad(ctx context.Context, category catalog.Category) *sharedLoad {
	o.loadsMu.Lock()
	defer o.loadsMu.Unlock()

	shared, ok := o.loads[category]
	if !ok {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.CategoryLoadTimeout)
		shared = &sharedLoad{ctx: loadCtx, cancel: cancel}
		o.loads[category] = shared
	}
	shared.waiters++
	return shared
}

func (o *Orchestrator) leaveLoad(category catalog.Category, shared *sharedLoad) {
	o.loadsMu.Lock()
	defer o.loadsMu.Unlock()

	shared.waiters--
	if shared.waiters > 0 {
		return
	}
	shared.cancel()
	if o.loads[category] == shared {
		delete(o.loads, category)
	}
}

func (o *Orchestrator) ensureAll(ctx context.Context) ([]catalog.Item, error) {
	categories := catalog.SourceCategories()
	results := make([][]catalog.Item, len(categories))
	errs := make([]error, len(categories))

	var g errgroup.Group
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			results[i], errs[i] = o.ensureSource(ctx, category)
			return nil
		})
	}
	_ = g.Wait()

	var merged []catalog.Item
	for _, items := range results {
		merged = append(merged, items...)
	}
	return merged, errors.Join(errs...)
}

// load fetches, normalizes and publishes one source category.
func (o *Orchestrator) load(ctx context.Context, category catalog.Category) error {
	ctx = logging.WithCategory(ctx, string(category))
	logger := logging.Ctx(ctx)
	start := time.Now()

	var (
		records []normalize.Record
		source  = sourceFor(category)
		err     error
	)
	switch category {
	case catalog.CategoryCode:
		records, err = o.listCode(ctx)
	case catalog.CategoryDataset:
		records, err = o.listDatasets(ctx)
	case catalog.CategorySpace:
		records, err = o.listSpaces(ctx)
	case catalog.CategoryModel:
		records, err = o.listModels(ctx)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		o.observe(category, "error", start)
		fetchErr := errors.NewFetchError(string(category), source, err)
		logger.Error().Err(fetchErr).Msg("Category load failed")
		return fetchErr
	}

	items, skipped := o.normalizer.NormalizeAll(records)
	for _, skip := range skipped {
		logger.Warn().Err(skip).Msg("Dropping malformed record")
		if o.metrics != nil {
			o.metrics.MalformedRecords.WithLabelValues(string(category)).Inc()
		}
	}

	if !o.store.Publish(category, items) {
		return nil
	}
	o.observe(category, "success", start)
	if o.metrics != nil {
		o.metrics.CategoryItems.WithLabelValues(string(category)).Set(float64(len(items)))
	}
	logger.Info().
		Int("item_count", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Category loaded")

	o.fireLoaded(category, items)
	return nil
}

func (o *Orchestrator) listCode(ctx context.Context) ([]normalize.Record, error) {
	repos, err := o.code.ListRepositories(ctx, o.cfg.Organization, o.cfg.MaxItems)
	if err != nil {
		return nil, err
	}

	records := make([]normalize.Record, 0, len(repos))
	for _, repo := range repos {
		if strings.EqualFold(repo.Name, o.cfg.AdminRepo) {
			continue
		}
		if repo.Fork && !o.forkAllowed(repo.Name) {
			continue
		}
		records = append(records, repo)
	}
	return truncate(records, o.cfg.MaxItems), nil
}

func (o *Orchestrator) listDatasets(ctx context.Context) ([]normalize.Record, error) {
	datasets, err := o.hub.ListDatasets(ctx, o.cfg.Organization, o.cfg.MaxItems)
	if err != nil {
		return nil, err
	}
	return truncate(asRecords(datasets), o.cfg.MaxItems), nil
}

func (o *Orchestrator) listSpaces(ctx context.Context) ([]normalize.Record, error) {
	spaces, err := o.hub.ListSpaces(ctx, o.cfg.Organization, o.cfg.MaxItems)
	if err != nil {
		return nil, err
	}
	return truncate(asRecords(spaces), o.cfg.MaxItems), nil
}

// listModels lists model IDs and then fetches each model's detail with
// bounded concurrency. A failed detail request drops that model; results
// keep listing order.
func (o *Orchestrator) listModels(ctx context.Context) ([]normalize.Record, error) {
	ids, err := o.hub.ListModelIDs(ctx, o.cfg.Organization, o.cfg.MaxItems)
	if err != nil {
		return nil, err
	}
	ids = truncate(ids, o.cfg.MaxItems)

	details := make([]*normalize.ModelRecord, len(ids))
	var g errgroup.Group
	g.SetLimit(o.cfg.DetailConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rec, err := o.hub.Model(ctx, id)
			if err != nil {
				detailErr := &errors.DetailFetchError{ItemID: id, Err: err}
				logging.Ctx(logging.WithItem(ctx, id)).Warn().Err(detailErr).Msg("Dropping model after failed detail fetch")
				if o.metrics != nil {
					o.metrics.DetailFailures.Inc()
				}
				return nil
			}
			details[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records := make([]normalize.Record, 0, len(ids))
	for _, rec := range details {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (o *Orchestrator) forkAllowed(name string) bool {
	return slices.ContainsFunc(o.cfg.ForkAllowList, func(allowed string) bool {
		return strings.EqualFold(allowed, name)
	})
}

func (o *Orchestrator) fireLoaded(category catalog.Category, items []catalog.Item) {
	o.mu.RLock()
	hooks := slices.Clone(o.onLoaded)
	o.mu.RUnlock()

	for _, hook := range hooks {
		hook(category, slices.Clone(items))
	}
}

func (o *Orchestrator) observe(category catalog.Category, result string, start time.Time) {
	if o.metrics == nil {
		return
	}
	o.metrics.CategoryLoads.WithLabelValues(string(category), result).Inc()
	o.metrics.CategoryLoadTime.WithLabelValues(string(category)).Observe(time.Since(start).Seconds())
}

func sourceFor(category catalog.Category) string {
	if category == catalog.CategoryCode {
		return sources.GitHub
	}
	return sources.HuggingFace
}

func asRecords[T normalize.Record](in []T) []normalize.Record {
	out := make([]normalize.Record, len(in))
	for i, r := range in {
		out[i] = r
	}
	return out
}

func truncate[T any](in []T, limit int) []T {
	if limit > 0 && len(in) > limit {
		return in[:limit]
	}
	return in
}
