// Package server provides the HTTP API for hubmap: catalog queries, tag and
// facet choices, state encoding, the repository badge and operational
// endpoints.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/hubmap"
	"github.com/agentstation/hubmap/cmd/application"
	"github.com/agentstation/hubmap/internal/metrics"
	"github.com/agentstation/hubmap/internal/server/cache"
	"github.com/agentstation/hubmap/internal/server/middleware"
	"github.com/agentstation/hubmap/pkg/catalog"
	"github.com/agentstation/hubmap/pkg/constants"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	app         application.Application
	cache       *cache.Cache
	metrics     *metrics.Metrics
	rateLimiter *middleware.RateLimiter
	logger      *zerolog.Logger
	config      Config
	ctx         context.Context
	cancel      context.CancelFunc
	startTime   time.Time
}

// New creates a new server instance. m may be nil, in which case HTTP
// instrumentation is off and /metrics serves the client's registry if any.
func New(app application.Application, cfg Config, m *metrics.Metrics) (*Server, error) {
	logger := app.Logger()

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = constants.StatsCacheTTL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultConfig().PathPrefix
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		app:       app,
		cache:     cache.New(cfg.CacheTTL, constants.CacheCleanupInterval),
		metrics:   m,
		logger:    logger,
		config:    cfg,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	if cfg.RateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, logger)
	}

	if err := s.connectHooks(); err != nil {
		cancel()
		return nil, err
	}

	logger.Debug().Msg("Server instance created")
	return s, nil
}

// connectHooks logs each category as it becomes queryable.
func (s *Server) connectHooks() error {
	c, err := s.app.Client()
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("catalog client not configured")
	}

	c.OnCategoryLoaded(func(category catalog.Category, items []catalog.Item) {
		s.logger.Debug().
			Str("category", string(category)).
			Int("item_count", len(items)).
			Msg("Category available to API")
	})
	return nil
}

// Start starts background services.
func (s *Server) Start() {
	if s.rateLimiter != nil {
		go s.rateLimiter.Run(s.ctx, constants.CacheCleanupInterval)
	}
	s.logger.Debug().Msg("Background services started")
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// HTTPServer builds the net/http server for the configured address.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port)),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// ListenAndServe runs the server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := s.HTTPServer()
	s.Start()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Str("prefix", s.config.PathPrefix).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		_ = s.Shutdown(context.Background())
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops background services.
func (s *Server) Shutdown(_ context.Context) error {
	s.cancel()
	s.logger.Debug().Msg("Background services stopped")
	return nil
}

// Cache returns the server's cache instance.
func (s *Server) Cache() *cache.Cache {
	return s.cache
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}

// client is a convenience for the router.
func (s *Server) client() hubmap.Client {
	c, _ := s.app.Client()
	return c
}
