package handlers

import (
	"net/http"
	"time"

	"github.com/agentstation/hubmap/internal/server/response"
)

// HandleHealth handles GET /api/v1/health (liveness check).
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status":  "healthy",
		"service": "hubmap-api",
		"version": h.app.Version(),
	})
}

// HandleReady handles GET /api/v1/ready (readiness check). The server is
// ready once the catalog session exists; categories load lazily.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	c, ok := h.client(w, r)
	if !ok {
		return
	}

	response.OK(w, map[string]any{
		"status":       "ready",
		"organization": c.Organization(),
		"loaded":       c.Loaded(),
		"uptime":       time.Since(h.startTime).Round(time.Second).String(),
		"cache": map[string]any{
			"items": h.cache.ItemCount(),
		},
	})
}
