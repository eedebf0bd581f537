package catalog

import (
	"slices"
	"strings"
	"time"
)

// Item is the uniform record every registry entry is normalized into.
type Item struct {
	ID           string         `json:"id" yaml:"id"`
	Category     Category       `json:"category" yaml:"category"`
	DisplayName  string         `json:"display_name" yaml:"display_name"`
	Description  string         `json:"description" yaml:"description"`
	Tags         []string       `json:"tags" yaml:"tags"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	LastModified time.Time      `json:"last_modified" yaml:"last_modified"`
	New          bool           `json:"new" yaml:"new"`
	Popularity   int            `json:"popularity" yaml:"popularity"`
	URL          string         `json:"url" yaml:"url"`
	Extra        map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Key returns the category-qualified identity of the item.
func (i Item) Key() string {
	return string(i.Category) + ":" + i.ID
}

// IsNew reports whether the item was created within window of now.
func (i Item) IsNew(now time.Time, window time.Duration) bool {
	if i.CreatedAt.IsZero() {
		return false
	}
	return now.Sub(i.CreatedAt) < window
}

// HasTag reports whether the item carries tag, ignoring case.
func (i Item) HasTag(tag string) bool {
	return slices.ContainsFunc(i.Tags, func(t string) bool {
		return strings.EqualFold(t, tag)
	})
}

// MatchesSearch reports whether term occurs in the ID, the description or
// any tag, ignoring case. An empty term matches everything.
func (i Item) MatchesSearch(term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(i.ID), needle) ||
		strings.Contains(strings.ToLower(i.Description), needle) {
		return true
	}
	return slices.ContainsFunc(i.Tags, func(t string) bool {
		return strings.Contains(strings.ToLower(t), needle)
	})
}

// ExtraString returns a string pass-through field, or "" when absent.
func (i Item) ExtraString(key string) string {
	if v, ok := i.Extra[key].(string); ok {
		return v
	}
	return ""
}

// ExtraStrings returns a string list pass-through field.
func (i Item) ExtraStrings(key string) []string {
	switch v := i.Extra[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// DedupeTags removes case-insensitive duplicates, keeping the first spelling
// and dropping blanks.
func DedupeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
