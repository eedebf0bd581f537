package catalog

import (
	"slices"
	"strings"
	"sync"
)

// Store caches normalized items per source category for one session.
// A category is published at most once; its items, tag set and loaded flag
// become visible together.
type Store struct {
	mu     sync.RWMutex
	items  map[Category][]Item
	tags   map[Category]map[string]struct{}
	loaded map[Category]bool
}

// NewStore creates an empty store with every category unloaded.
func NewStore() *Store {
	return &Store{
		items:  make(map[Category][]Item),
		tags:   make(map[Category]map[string]struct{}),
		loaded: make(map[Category]bool),
	}
}

// Publish stores the items of a source category and marks it loaded.
// It returns false, leaving the store untouched, when the category was
// already loaded.
func (s *Store) Publish(category Category, items []Item) bool {
	tagSet := make(map[string]struct{})
	for _, item := range items {
		for _, t := range item.Tags {
			tagSet[strings.ToLower(t)] = struct{}{}
		}
	}
	cloned := slices.Clone(items)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded[category] {
		return false
	}
	s.items[category] = cloned
	s.tags[category] = tagSet
	s.loaded[category] = true
	return true
}

// Loaded reports whether a source category has been published.
func (s *Store) Loaded(category Category) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded[category]
}

// Items returns a copy of the items of a category in publish order, and
// whether the category is loaded.
func (s *Store) Items(category Category) ([]Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded[category] {
		return nil, false
	}
	return slices.Clone(s.items[category]), true
}

// Snapshot returns the loaded items of every source category, in merge order,
// under a single read lock.
func (s *Store) Snapshot() map[Category][]Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Category][]Item, len(s.loaded))
	for _, c := range SourceCategories() {
		if s.loaded[c] {
			out[c] = slices.Clone(s.items[c])
		}
	}
	return out
}

// Tags returns the sorted lowercased tag set of a source category, or the
// union over all loaded categories for CategoryAll.
func (s *Store) Tags(category Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	union := make(map[string]struct{})
	for _, c := range SourceCategories() {
		if category != CategoryAll && category != c {
			continue
		}
		for t := range s.tags[c] {
			union[t] = struct{}{}
		}
	}
	return SortedKeys(union)
}

// LoadedCategories reports the loaded flag of every source category.
func (s *Store) LoadedCategories() map[Category]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Category]bool, 4)
	for _, c := range SourceCategories() {
		out[c] = s.loaded[c]
	}
	return out
}

// SortedKeys returns the keys of a set in ascending order.
func SortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
