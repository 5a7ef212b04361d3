// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the aggregator over HTTP: the search endpoint the
// UI calls, read-only provider and history listings, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/openresources/internal/history"
	"github.com/pdiddy/openresources/internal/logger"
	"github.com/pdiddy/openresources/internal/metrics"
	"github.com/pdiddy/openresources/internal/search"
	"github.com/pdiddy/openresources/pkg/types"
)

const msgInternal = "internal error"

// HistoryReader lists and looks up recorded searches.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
	Get(ctx context.Context, id string) (history.Entry, error)
}

// Server serves the aggregator HTTP API.
type Server struct {
	search  *search.Service
	history HistoryReader
	metrics *metrics.Metrics
	logger  *zap.Logger
	cfg     types.ServerConfig
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables GET /api/history.
func WithHistory(h HistoryReader) Option {
	return func(s *Server) { s.history = h }
}

// WithMetrics instruments requests and serves GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a Server for svc.
func New(svc *search.Service, cfg types.ServerConfig, opts ...Option) *Server {
	s := &Server{search: svc, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router. Background work started for the handler (the
// rate limiter's sweeper) stops when ctx is done.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.useMiddleware(r)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimitRPS > 0 {
			r.Use(rateLimiter(ctx, s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, s.metrics))
		}
		r.Get("/search", s.handleSearch)
		r.Get("/providers", s.handleProviders)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryEntry)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// useMiddleware installs the shared middleware stack. The recoverer sits
// innermost so a panicking request still gets a request id, a wide event
// line and a metrics sample with status 500.
func (s *Server) useMiddleware(r chi.Router) {
	r.Use(chimw.RequestID)
	r.Use(wideEvent(s.logger))
	r.Use(s.metrics.Middleware())
	r.Use(jsonRecoverer(s.logger))
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(ctx),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout())
		defer cancel()
		s.logger.Info("http server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) shutdownTimeout() time.Duration {
	if s.cfg.ShutdownTimeout > 0 {
		return s.cfg.ShutdownTimeout
	}
	return 10 * time.Second
}

// handleSearch handles GET /api/search?q=&type=&page=&limit=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	page, err := intParam(params.Get("page"), "page")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limitRaw := params.Get("limit")
	if limitRaw == "" {
		limitRaw = params.Get("pageSize")
	}
	pageSize, err := intParam(limitRaw, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), search.RawQuery{
		Text:     params.Get("q"),
		Type:     params.Get("type"),
		Page:     page,
		PageSize: pageSize,
	})
	switch {
	case search.IsCallerError(err):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.FromContextOr(r.Context(), s.logger).Error("search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type providerInfo struct {
	Name      string               `json:"name"`
	Types     []types.ResourceType `json:"types"`
	Enabled   bool                 `json:"enabled"`
	TimeoutMs int64                `json:"timeout_ms"`
}

// handleProviders handles GET /api/providers.
func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	entries := s.search.Registry().Entries()
	out := make([]providerInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, providerInfo{
			Name:      e.Name(),
			Types:     e.Types,
			Enabled:   e.Enabled,
			TimeoutMs: e.Timeout.Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

// handleHistory handles GET /api/history?limit=.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "search history is disabled")
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		logger.FromContextOr(r.Context(), s.logger).Error("reading history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"searches": entries})
}

// handleHistoryEntry handles GET /api/history/{id}.
func (s *Server) handleHistoryEntry(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "search history is disabled")
		return
	}
	e, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, history.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		logger.FromContextOr(r.Context(), s.logger).Error("reading history entry failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	enabled := len(s.search.Registry().AdaptersFor(types.FilterAll))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"providers_enabled": enabled,
	})
}

// intParam parses an optional non-negative integer query parameter. An
// empty value is zero, which selects the default downstream.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", types.ErrInvalidQuery, name)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
