// Package query evaluates catalog queries against a catalog.Store and
// serializes query state into a compact shareable string.
package query

import (
	"strings"

	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/errors"
)

// SortKey selects the result ordering.
type SortKey string

// Sort keys.
const (
	SortLastModified   SortKey = "lastModified"
	SortCreatedAt      SortKey = "createdAt"
	SortNameAsc        SortKey = "name-asc"
	SortNameDesc       SortKey = "name-desc"
	SortPopularityDesc SortKey = "popularity-desc"
	SortPopularityAsc  SortKey = "popularity-asc"
)

// SortKeys returns every accepted sort key.
func SortKeys() []SortKey {
	return []SortKey{SortLastModified, SortCreatedAt, SortNameAsc, SortNameDesc, SortPopularityDesc, SortPopularityAsc}
}

// sortAliases maps legacy spellings onto sort keys.
var sortAliases = map[string]SortKey{
	"id":         SortNameAsc,
	"created_at": SortCreatedAt,
	"likes":      SortPopularityDesc,
}

// ParseSortKey parses a sort key. Matching ignores case.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys() {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	if k, ok := sortAliases[strings.ToLower(s)]; ok {
		return k, nil
	}
	return "", errors.NewValidationError("sort", s, "unknown sort key")
}

// Params is one query over the catalog. The zero value is not the default
// query; use DefaultParams.
type Params struct {
	Category catalog.Category `json:"category" yaml:"category"`
	Search   string           `json:"search,omitempty" yaml:"search,omitempty"`
	Tag      string           `json:"tag,omitempty" yaml:"tag,omitempty"`
	Sort     SortKey          `json:"sort" yaml:"sort"`

	// Facets constrain only the items of the categories they describe.
	Library  string `json:"library,omitempty" yaml:"library,omitempty"`   // models
	SDK      string `json:"sdk,omitempty" yaml:"sdk,omitempty"`           // spaces
	Dataset  string `json:"dataset,omitempty" yaml:"dataset,omitempty"`   // models and spaces
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`       // spaces
	Task     string `json:"task,omitempty" yaml:"task,omitempty"`         // datasets
	Modality string `json:"modality,omitempty" yaml:"modality,omitempty"` // datasets
}

// DefaultParams returns the query shown before any user input.
func DefaultParams() Params {
	return Params{
		Category: catalog.CategoryAll,
		Sort:     SortLastModified,
	}
}

// Normalized fills unset or invalid category and sort values with their
// defaults.
func (p Params) Normalized() Params {
	if c, err := catalog.ParseCategory(string(p.Category)); err == nil {
		p.Category = c
	} else {
		p.Category = catalog.CategoryAll
	}
	if k, err := ParseSortKey(string(p.Sort)); err == nil {
		p.Sort = k
	} else {
		p.Sort = SortLastModified
	}
	return p
}
