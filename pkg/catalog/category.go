package catalog

import (
	"strings"

	"github.com/agentstation/hubmap/pkg/errors"
)

// Category identifies one kind of catalog item, or one of the two
// synthetic views (All and ForkedCode).
type Category string

// Category values.
const (
	CategoryAll        Category = "all"
	CategoryCode       Category = "code"
	CategoryDataset    Category = "dataset"
	CategoryModel      Category = "model"
	CategorySpace      Category = "space"
	CategoryForkedCode Category = "forkedCode"
)

// String returns the string representation of a category.
func (c Category) String() string {
	return string(c)
}

// IsSource reports whether the category is backed by a registry listing.
func (c Category) IsSource() bool {
	switch c {
	case CategoryCode, CategoryDataset, CategoryModel, CategorySpace:
		return true
	}
	return false
}

// IsValid reports whether the category is a source category or a synthetic view.
func (c Category) IsValid() bool {
	return c.IsSource() || c == CategoryAll || c == CategoryForkedCode
}

// SourceCategories returns the four source categories in merge order.
func SourceCategories() []Category {
	return []Category{CategoryCode, CategoryDataset, CategoryModel, CategorySpace}
}

// Categories returns every category accepted by a query.
func Categories() []Category {
	return []Category{CategoryAll, CategoryCode, CategoryDataset, CategoryModel, CategorySpace, CategoryForkedCode}
}

// ParseCategory parses a category name. Matching ignores case.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", errors.NewValidationError("category", s, "unknown category")
}
