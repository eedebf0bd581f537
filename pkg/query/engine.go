package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/constants"
	"github.com/agentstation/hubmap/pkg/normalize"
)

// Engine evaluates queries against the loaded categories of a store. It
// never fetches and never mutates the store.
type Engine struct {
	store         *catalog.Store
	forkAllowList []string
	window        time.Duration
	now           func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithForkAllowList sets the names that make up the forked-code view.
func WithForkAllowList(names []string) Option {
	return func(e *Engine) {
		e.forkAllowList = slices.Clone(names)
	}
}

// WithFreshnessWindow sets the window in which an item counts as new.
func WithFreshnessWindow(window time.Duration) Option {
	return func(e *Engine) {
		if window > 0 {
			e.window = window
		}
	}
}

// WithClock sets the reference time used for the new flag.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over store.
func NewEngine(store *catalog.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		window: time.Duration(constants.DefaultFreshnessDays) * 24 * time.Hour,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the items matching params, in a new slice ordered by the
// requested sort. Unloaded categories contribute nothing.
func (e *Engine) Evaluate(params Params) []catalog.Item {
	params = params.Normalized()

	source := e.sourceSet(params.Category)
	now := e.now()

	out := make([]catalog.Item, 0, len(source))
	for _, item := range source {
		if !matches(item, params) {
			continue
		}
		item.New = item.IsNew(now, e.window)
		out = append(out, item)
	}

	slices.SortStableFunc(out, comparator(params.Sort))
	return out
}

// Tags returns the sorted distinct lowercased tags of the loaded data for
// category. CategoryAll yields the union; CategoryForkedCode the tags of
// the forked subset.
func (e *Engine) Tags(category catalog.Category) []string {
	if category == catalog.CategoryForkedCode {
		return catalog.TagSet(e.sourceSet(category))
	}
	return e.store.Tags(category)
}

// Facets lists the choices for the category-scoped facet filters.
type Facets struct {
	Libraries  []string `json:"libraries" yaml:"libraries"`
	SDKs       []string `json:"sdks" yaml:"sdks"`
	Datasets   []string `json:"datasets" yaml:"datasets"`
	Models     []string `json:"models" yaml:"models"`
	Tasks      []string `json:"tasks" yaml:"tasks"`
	Modalities []string `json:"modalities" yaml:"modalities"`
}

// Facets returns the facet choices present in the loaded data for category.
func (e *Engine) Facets(category catalog.Category) Facets {
	libraries := newChoiceSet()
	sdks := newChoiceSet()
	datasets := newChoiceSet()
	models := newChoiceSet()
	tasks := newChoiceSet()
	modalities := newChoiceSet()

	for _, item := range e.sourceSet(category) {
		switch item.Category {
		case catalog.CategoryDataset:
			tasks.add(item.ExtraStrings(normalize.ExtraTasks)...)
			modalities.add(item.ExtraStrings(normalize.ExtraModalities)...)
		case catalog.CategoryModel:
			libraries.add(item.ExtraString(normalize.ExtraLibrary))
			datasets.add(item.ExtraStrings(normalize.ExtraDatasets)...)
		case catalog.CategorySpace:
			sdks.add(item.ExtraString(normalize.ExtraSDK))
			datasets.add(item.ExtraStrings(normalize.ExtraDatasets)...)
			models.add(item.ExtraStrings(normalize.ExtraModels)...)
		}
	}

	return Facets{
		Libraries:  libraries.sorted(),
		SDKs:       sdks.sorted(),
		Datasets:   datasets.sorted(),
		Models:     models.sorted(),
		Tasks:      tasks.sorted(),
		Modalities: modalities.sorted(),
	}
}

func (e *Engine) sourceSet(category catalog.Category) []catalog.Item {
	switch category {
	case catalog.CategoryAll:
		snapshot := e.store.Snapshot()
		var merged []catalog.Item
		for _, c := range catalog.SourceCategories() {
			merged = append(merged, snapshot[c]...)
		}
		return merged
	case catalog.CategoryForkedCode:
		code, _ := e.store.Items(catalog.CategoryCode)
		return catalog.ForkedSubset(code, e.forkAllowList)
	default:
		items, _ := e.store.Items(category)
		return items
	}
}

func matches(item catalog.Item, p Params) bool {
	if !item.MatchesSearch(p.Search) {
		return false
	}
	if p.Tag != "" && !item.HasTag(p.Tag) {
		return false
	}

	switch item.Category {
	case catalog.CategoryDataset:
		if p.Task != "" && !linksTo(item, normalize.ExtraTasks, p.Task) {
			return false
		}
		if p.Modality != "" && !linksTo(item, normalize.ExtraModalities, p.Modality) {
			return false
		}
	case catalog.CategoryModel:
		if p.Library != "" && !strings.EqualFold(item.ExtraString(normalize.ExtraLibrary), p.Library) {
			return false
		}
		if p.Dataset != "" && !linksTo(item, normalize.ExtraDatasets, p.Dataset) {
			return false
		}
	case catalog.CategorySpace:
		if p.SDK != "" && !strings.EqualFold(item.ExtraString(normalize.ExtraSDK), p.SDK) {
			return false
		}
		if p.Dataset != "" && !linksTo(item, normalize.ExtraDatasets, p.Dataset) {
			return false
		}
		if p.Model != "" && !linksTo(item, normalize.ExtraModels, p.Model) {
			return false
		}
	}
	return true
}

// linksTo reports whether item references id through its linked list or a
// bare tag equal to id.
func linksTo(item catalog.Item, key, id string) bool {
	if item.HasTag(id) {
		return true
	}
	return slices.ContainsFunc(item.ExtraStrings(key), func(ref string) bool {
		return strings.EqualFold(ref, id)
	})
}

func comparator(key SortKey) func(a, b catalog.Item) int {
	switch key {
	case SortCreatedAt:
		return func(a, b catalog.Item) int { return b.CreatedAt.Compare(a.CreatedAt) }
	case SortNameAsc:
		return func(a, b catalog.Item) int { return strings.Compare(a.ID, b.ID) }
	case SortNameDesc:
		return func(a, b catalog.Item) int { return strings.Compare(b.ID, a.ID) }
	case SortPopularityDesc:
		return func(a, b catalog.Item) int { return cmp.Compare(b.Popularity, a.Popularity) }
	case SortPopularityAsc:
		return func(a, b catalog.Item) int { return cmp.Compare(a.Popularity, b.Popularity) }
	default:
		return func(a, b catalog.Item) int { return b.LastModified.Compare(a.LastModified) }
	}
}

// choiceSet collects distinct values ignoring case, keeping the first spelling.
type choiceSet map[string]string

func newChoiceSet() choiceSet {
	return make(choiceSet)
}

func (s choiceSet) add(values ...string) {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := s[key]; !ok {
			s[key] = v
		}
	}
}

func (s choiceSet) sorted() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = s[k]
	}
	return out
}
