package handlers

import (
	"net/http"

	"github.com/agentstation/hubmap/internal/server/response"
	"github.com/agentstation/hubmap/pkg/logging"
)

const statsCacheKey = "repository_stats"

// HandleStats handles GET /api/v1/stats, the catalog repository badge.
// Successful lookups are cached; failures are not.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	ctx := logging.WithOperation(r.Context(), "repository_stats")
	stats, err := h.cache.Remember(statsCacheKey, func() (any, error) {
		return c.RepositoryStats(ctx)
	})
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Repository stats unavailable")
		response.ErrorFromType(w, err)
		return
	}

	response.OK(w, stats)
}
