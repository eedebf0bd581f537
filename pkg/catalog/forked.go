package catalog

import "strings"

// ForkedSubset returns the code items whose display name matches an entry of
// the fork allow-list, ignoring case. Source order is preserved.
func ForkedSubset(code []Item, allowList []string) []Item {
	if len(allowList) == 0 {
		return []Item{}
	}
	allowed := make(map[string]struct{}, len(allowList))
	for _, name := range allowList {
		allowed[strings.ToLower(name)] = struct{}{}
	}

	out := make([]Item, 0, len(allowList))
	for _, item := range code {
		if _, ok := allowed[strings.ToLower(item.DisplayName)]; ok {
			out = append(out, item)
		}
	}
	return out
}

// TagSet returns the sorted distinct lowercased tags of items.
func TagSet(items []Item) []string {
	set := make(map[string]struct{})
	for _, item := range items {
		for _, t := range item.Tags {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	return SortedKeys(set)
}
