// Package handlers provides HTTP request handlers for the hubmap API.
package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/server/cache"
	"github.com/agentstation/hubmap/internal/server/response"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/logging"
)

// Handlers provides access to all HTTP handlers.
type Handlers struct {
	app       application.Application
	cache     *cache.Cache
	logger    *zerolog.Logger
	startTime time.Time
}

// New creates a new Handlers instance.
func New(app application.Application, cache *cache.Cache, logger *zerolog.Logger) *Handlers {
	return &Handlers{
		app:       app,
		cache:     cache,
		logger:    logger,
		startTime: time.Now(),
	}
}

// client resolves the catalog session, answering 503 when it is unavailable.
func (h *Handlers) client(w http.ResponseWriter, r *http.Request) (hubmap.Client, bool) {
	c, err := h.app.Client()
	if err != nil || c == nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Catalog client unavailable")
		response.ServiceUnavailable(w, "Catalog not available")
		return nil, false
	}
	return c, true
}

// categoryParam reads the "category" query parameter, defaulting to all.
func categoryParam(r *http.Request) (catalog.Category, error) {
	raw := r.URL.Query().Get("category")
	if raw == "" {
		return catalog.CategoryAll, nil
	}
	return catalog.ParseCategory(raw)
}
