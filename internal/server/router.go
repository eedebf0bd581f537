package server

import (
	"net/http"
	"strings"

	"github.com/agentstation/hubmap/internal/server/handlers"
	"github.com/agentstation/hubmap/internal/server/middleware"
	"github.com/agentstation/hubmap/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()
	h := handlers.New(s.app, s.cache, s.logger)

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/health", get(h.HandleHealth))
	mux.HandleFunc(prefix+"/health", get(h.HandleHealth))
	mux.HandleFunc(prefix+"/ready", get(h.HandleReady))

	mux.HandleFunc(prefix+"/items", get(h.HandleListItems))
	mux.HandleFunc(prefix+"/tags", get(h.HandleTags))
	mux.HandleFunc(prefix+"/facets", get(h.HandleFacets))
	mux.HandleFunc(prefix+"/categories", get(h.HandleCategories))
	mux.HandleFunc(prefix+"/stats", get(h.HandleStats))
	mux.HandleFunc(prefix+"/state/encode", get(h.HandleStateEncode))
	mux.HandleFunc(prefix+"/state/decode", get(h.HandleStateDecode))

	if s.config.MetricsEnabled {
		if handler := s.metricsHandler(); handler != nil {
			mux.Handle("/metrics", handler)
			mux.Handle(prefix+"/metrics", handler)
		}
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found", r.URL.Path)
	})
}

// metricsHandler prefers the server's own registry, which also carries the
// client's loading metrics when both share it.
func (s *Server) metricsHandler() http.Handler {
	if s.metrics != nil {
		return s.metrics.Handler()
	}
	if c := s.client(); c != nil {
		return c.MetricsHandler()
	}
	return nil
}

// applyMiddleware wraps handler with middleware chain. The first entry is
// the outermost.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	chain := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID,
		middleware.Logger(s.logger),
		middleware.Metrics(s.metrics, s.routeLabel),
	}

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
		} else {
			corsConfig.AllowAll = true
		}
		chain = append(chain, middleware.CORS(corsConfig))
	}

	if s.rateLimiter != nil {
		chain = append(chain, middleware.RateLimit(s.rateLimiter))
	}

	return middleware.Chain(chain...)(handler)
}

// routeLabel maps a request to its route for metrics, collapsing unknown
// paths so label cardinality stays bounded.
func (s *Server) routeLabel(r *http.Request) string {
	path := strings.TrimPrefix(r.URL.Path, s.config.PathPrefix)
	switch path {
	case "/items", "/tags", "/facets", "/categories", "/stats",
		"/state/encode", "/state/decode", "/health", "/ready", "/metrics":
		return path
	default:
		return "other"
	}
}

// get restricts a handler to GET and HEAD.
func get(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			response.MethodNotAllowed(w, r.Method)
			return
		}
		fn(w, r)
	}
}
