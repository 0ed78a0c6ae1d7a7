// Package server exposes the locator, the rule annotator and the rules-file diff over
// HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/polisai/sourcemark/pkg/config"
	"github.com/polisai/sourcemark/pkg/locate"
	"github.com/polisai/sourcemark/pkg/rules"
	"github.com/polisai/sourcemark/pkg/telemetry"
)

// Server is the sourcemark HTTP service.
type Server struct {
	logger    *slog.Logger
	metrics   *telemetry.Metrics
	annotator *rules.Annotator
	cache     *matchCache

	maxBodyBytes    atomic.Int64
	maxExcerptBytes atomic.Int64
	handler      http.Handler

	mu      sync.Mutex
	server  *http.Server
	running bool
}

// New creates a Server from cfg. A nil logger uses slog.Default; a nil metrics
// instance gets a fresh private registry.
func New(cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: nil config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}

	cache, err := newMatchCache(cfg.Limits.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create highlight cache: %w", err)
	}

	s := &Server{
		logger:  logger,
		metrics: metrics,
		cache:   cache,
	}
	s.annotator = rules.NewAnnotator(cfg.Limits.AnnotateConcurrency, s.find)
	s.maxBodyBytes.Store(cfg.Limits.MaxBodyBytes)
	s.maxExcerptBytes.Store(cfg.Limits.MaxExcerptBytes)

	mux := http.NewServeMux()
	s.registerRoutes(mux, cfg.Metrics)

	var handler http.Handler = mux
	handler = metrics.Middleware(handler)
	handler = s.requestLogger(handler)
	handler = withRequestID(handler)
	s.handler = otelhttp.NewHandler(handler, "sourcemark")

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ApplyConfig updates the settings that can change without a restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.annotator.SetConcurrency(cfg.Limits.AnnotateConcurrency)
	s.maxBodyBytes.Store(cfg.Limits.MaxBodyBytes)
	s.maxExcerptBytes.Store(cfg.Limits.MaxExcerptBytes)
	s.cache.resize(cfg.Limits.CacheSize)
	s.metrics.RecordConfigReload("success")
	s.logger.Info("Applied configuration",
		"annotate_concurrency", s.annotator.Concurrency(),
		"max_body_bytes", cfg.Limits.MaxBodyBytes,
		"max_excerpt_bytes", cfg.Limits.MaxExcerptBytes,
		"cache_size", cfg.Limits.CacheSize,
	)
}

// ConfigReloadFailed records a rejected configuration reload.
func (s *Server) ConfigReloadFailed(err error) {
	s.metrics.RecordConfigReload("failure")
	s.logger.Warn("Configuration reload rejected", "error", err)
}

// Start listens on addr and serves until Stop is called.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.server.Addr = addr
	s.mu.Unlock()

	s.logger.Info("Starting sourcemark", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	return s.server.Shutdown(ctx)
}

// find is the cached, traced and measured locator used by every endpoint.
func (s *Server) find(ctx context.Context, document, excerpt string) locate.Match {
	key := keyFor(document, excerpt)
	if m, ok := s.cache.get(key); ok {
		s.metrics.RecordCacheLookup(true)
		return m
	}
	if s.cache != nil {
		s.metrics.RecordCacheLookup(false)
	}

	start := time.Now()
	m := telemetry.TracedFind(ctx, document, excerpt)
	s.metrics.RecordLocate(m.Tier, time.Since(start))

	s.cache.add(key, m)
	return m
}

func (s *Server) registerRoutes(mux *http.ServeMux, metricsCfg config.MetricsConfig) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/v1/highlight", s.handleHighlight)
	mux.HandleFunc("/v1/highlight/lines", s.handleHighlightLines)
	mux.HandleFunc("/v1/rules/annotate", s.handleAnnotate)
	mux.HandleFunc("/v1/diff", s.handleDiff)

	if metricsCfg.Enabled {
		mux.Handle(metricsCfg.Path, s.metrics.Handler())
	}
}
