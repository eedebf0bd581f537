package handlers

import (
	"net/http"

	"github.com/agentstation/hubmap/internal/server/response"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/logging"
	"github.com/agentstation/hubmap/pkg/query"
)

// ItemsResult is the payload of GET /items.
type ItemsResult struct {
	Items  []catalog.Item `json:"items"`
	Count  int            `json:"count"`
	Params query.Params   `json:"params"`
	State  string         `json:"state"`
}

// HandleListItems handles GET /api/v1/items.
//
// Query parameters use the state keys (category, search, tag, sort, library,
// sdk, dataset, model). An encoded "state" parameter is applied first and
// explicit keys override it. Invalid values revert to their defaults.
// When some categories of an "all" query fail to load, the loaded items are
// still returned with status 200 and a FETCH_FAILED error alongside.
func (h *Handlers) HandleListItems(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	params := paramsFromRequest(r)
	ctx := logging.WithOperation(r.Context(), "list_items")

	items, err := c.Search(ctx, params)
	if items == nil {
		items = []catalog.Item{}
	}
	result := ItemsResult{
		Items:  items,
		Count:  len(items),
		Params: params,
		State:  query.Encode(params),
	}

	if err != nil {
		if params.Category == catalog.CategoryAll && len(items) > 0 {
			logging.Ctx(ctx).Warn().Err(err).Int("item_count", len(items)).Msg("Serving partial results")
			_, code := response.StatusFor(err)
			response.JSON(w, http.StatusOK, response.Partial(result, code, "Some categories failed to load", err.Error()))
			return
		}
		logging.Ctx(ctx).Error().Err(err).Msg("Search failed")
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, result)
}

// paramsFromRequest merges the encoded "state" parameter with the explicit
// query keys, the explicit keys winning.
func paramsFromRequest(r *http.Request) query.Params {
	values := r.URL.Query()
	state := values.Get("state")
	values.Del("state")
	return query.Merge(state, values.Encode())
}
