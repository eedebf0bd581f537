package handlers

import (
	"net/http"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/internal/server/response"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/logging"
)

// TagsResult is the payload of GET /tags.
type TagsResult struct {
	Category catalog.Category `json:"category"`
	Tags     []string         `json:"tags"`
}

// HandleTags handles GET /api/v1/tags?category=.
func (h *Handlers) HandleTags(w http.ResponseWriter, r *http.Request) {
	c, category, ok := h.loadCategory(w, r, "list_tags")
	if !ok {
		return
	}

	tags := c.Tags(category)
	if tags == nil {
		tags = []string{}
	}
	response.OK(w, TagsResult{Category: category, Tags: tags})
}

// HandleFacets handles GET /api/v1/facets?category=.
func (h *Handlers) HandleFacets(w http.ResponseWriter, r *http.Request) {
	c, category, ok := h.loadCategory(w, r, "list_facets")
	if !ok {
		return
	}

	response.OK(w, map[string]any{
		"category": category,
		"facets":   c.Facets(category),
	})
}

// HandleCategories handles GET /api/v1/categories. It reports which source
// categories are loaded without triggering any fetch.
func (h *Handlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	loaded := c.Loaded()
	categories := make([]map[string]any, 0, len(catalog.Categories()))
	for _, category := range catalog.Categories() {
		entry := map[string]any{
			"name":   category,
			"source": category.IsSource(),
		}
		if category.IsSource() {
			entry["loaded"] = loaded[category]
		}
		categories = append(categories, entry)
	}

	response.OK(w, map[string]any{
		"organization": c.Organization(),
		"categories":   categories,
	})
}

// loadCategory parses the category parameter and ensures it is loaded. For
// "all", categories that fail to load are logged and the rest are served.
func (h *Handlers) loadCategory(w http.ResponseWriter, r *http.Request, operation string) (hubmap.Client, catalog.Category, bool) {
	category, err := categoryParam(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return nil, "", false
	}

	c, ok := h.client(w, r)
	if !ok {
		return nil, "", false
	}

	ctx := logging.WithCategory(logging.WithOperation(r.Context(), operation), string(category))
	if _, err := c.EnsureLoaded(ctx, category); err != nil {
		if category != catalog.CategoryAll {
			response.ErrorFromType(w, err)
			return nil, "", false
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("Some categories failed to load")
	}
	return c, category, true
}
