package query

import (
	"net/url"
	"strings"

	"github.com/agentstation/hubmap/pkg/catalog"
)

// State keys.
const (
	KeyCategory = "category"
	KeySearch   = "search"
	KeySort     = "sort"
	KeyTag      = "tag"
	KeyLibrary  = "library"
	KeySDK      = "sdk"
	KeyDataset  = "dataset"
	KeyModel    = "model"
	KeyTask     = "task"
	KeyModality = "modality"
)

// Encode serializes params as a flat key=value string with sorted keys.
// Values equal to their defaults are omitted, so the default query encodes
// to "".
func Encode(p Params) string {
	return Values(p).Encode()
}

// Values returns the non-default fields of params as url.Values.
func Values(p Params) url.Values {
	p = p.Normalized()
	v := url.Values{}
	if p.Category != catalog.CategoryAll {
		v.Set(KeyCategory, string(p.Category))
	}
	if p.Sort != SortLastModified {
		v.Set(KeySort, string(p.Sort))
	}
	setNonEmpty(v, KeySearch, p.Search)
	setNonEmpty(v, KeyTag, p.Tag)
	setNonEmpty(v, KeyLibrary, p.Library)
	setNonEmpty(v, KeySDK, p.SDK)
	setNonEmpty(v, KeyDataset, p.Dataset)
	setNonEmpty(v, KeyModel, p.Model)
	setNonEmpty(v, KeyTask, p.Task)
	setNonEmpty(v, KeyModality, p.Modality)
	return v
}

// Decode parses an encoded state string. A leading "?" or "#" is ignored.
// Unknown categories and sort keys revert to their defaults instead of
// failing; unknown keys are ignored.
func Decode(s string) Params {
	return FromValues(parse(s))
}

// FromValues builds params from already-parsed values.
func FromValues(v url.Values) Params {
	p := DefaultParams()
	if c, err := catalog.ParseCategory(v.Get(KeyCategory)); err == nil {
		p.Category = c
	}
	if k, err := ParseSortKey(v.Get(KeySort)); err == nil {
		p.Sort = k
	}
	p.Search = v.Get(KeySearch)
	p.Tag = v.Get(KeyTag)
	p.Library = v.Get(KeyLibrary)
	p.SDK = v.Get(KeySDK)
	p.Dataset = v.Get(KeyDataset)
	p.Model = v.Get(KeyModel)
	p.Task = v.Get(KeyTask)
	p.Modality = v.Get(KeyModality)
	return p
}

// Merge decodes several encodings in precedence order: for any key present
// in more than one tier the later tier wins, and keys present in only one
// tier pass through.
func Merge(tiers ...string) Params {
	merged := url.Values{}
	for _, tier := range tiers {
		for key, values := range parse(tier) {
			if len(values) > 0 {
				merged[key] = values
			}
		}
	}
	return FromValues(merged)
}

// DecodeLocation decodes a composite location "path?query#fragment". State
// in the fragment overrides state in the query string. Input without "?" or
// "#" is decoded as a bare state string.
func DecodeLocation(location string) Params {
	if !strings.ContainsAny(location, "?#") {
		return Decode(location)
	}
	rest, fragment, _ := strings.Cut(location, "#")
	_, query, _ := strings.Cut(rest, "?")
	return Merge(query, fragment)
}

// parse tolerates malformed pairs, keeping whatever decoded.
func parse(s string) url.Values {
	s = strings.TrimLeft(strings.TrimSpace(s), "?#")
	v, _ := url.ParseQuery(s)
	if v == nil {
		return url.Values{}
	}
	return v
}

func setNonEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
