// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search aggregates the configured providers into one ranked,
// deduplicated and paginated answer. The Coordinator fans a query out under
// a shared deadline, Rank merges and orders what came back, Paginate slices
// the merged set, and Service ties the three together behind Search.
package search

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/openresources/internal/logger"
	"github.com/pdiddy/openresources/internal/metrics"
	"github.com/pdiddy/openresources/internal/registry"
	"github.com/pdiddy/openresources/internal/telemetry"
	"github.com/pdiddy/openresources/pkg/types"
)

// historyTimeout bounds the best-effort history write after a search.
const historyTimeout = 2 * time.Second

// RawQuery holds the unvalidated parameters of a search request. Zero page
// and page size select the defaults.
type RawQuery struct {
	Text     string
	Type     string
	Page     int
	PageSize int
}

// HistoryRecorder persists completed searches.
type HistoryRecorder interface {
	Record(ctx context.Context, q types.Query, resp *types.SearchResponse) error
}

// Service answers search requests against a provider registry.
type Service struct {
	coordinator *Coordinator
	ranker      Ranker
	pageSize    int
	history     HistoryRecorder
	logger      *zap.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records provider and search metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithHistory records every successful search in h.
func WithHistory(h HistoryRecorder) Option {
	return func(s *Service) { s.history = h }
}

// NewService creates a Service that queries reg with the settings in cfg.
func NewService(reg *registry.Registry, cfg types.SearchConfig, opts ...Option) *Service {
	s := &Service{
		ranker:   Ranker{RecencyWindowYears: cfg.RecencyWindowYears},
		pageSize: cfg.DefaultPageSize,
		logger:   zap.NewNop(),
		tracer:   telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coordinator = &Coordinator{
		Registry: reg,
		Deadline: cfg.Deadline,
		Limit:    cfg.PerProviderLimit,
		Logger:   s.logger,
		Metrics:  s.metrics,
		Tracer:   s.tracer,
	}
	return s
}

// Registry returns the registry the service queries.
func (s *Service) Registry() *registry.Registry { return s.coordinator.Registry }

// Search validates raw, fans it out to the providers, ranks the merged
// results and returns the requested page. Errors wrapping
// types.ErrInvalidQuery are caller errors; no provider is contacted for
// them. Provider failures never produce an error: they show up as zero
// coverage and a failed provider report.
func (s *Service) Search(ctx context.Context, raw RawQuery) (*types.SearchResponse, error) {
	start := time.Now()
	log := logger.FromContextOr(ctx, s.logger)

	if raw.PageSize == 0 && s.pageSize > 0 {
		raw.PageSize = s.pageSize
	}
	q, err := types.NewQuery(raw.Text, raw.Type, raw.Page, raw.PageSize)
	if err != nil {
		s.metrics.ObserveSearch(filterLabel(raw.Type), "invalid", time.Since(start), 0)
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "search",
		trace.WithAttributes(
			attribute.String("query.type", string(q.Type)),
			attribute.Int("query.page", q.Page),
			attribute.Int("query.page_size", q.PageSize),
		),
	)
	defer span.End()

	outcomes, coverage := s.coordinator.Dispatch(ctx, q)
	ranked := s.ranker.Rank(q, outcomes)
	page, total, hasMore := Paginate(ranked, q.Page, q.PageSize)

	reports := make([]types.ProviderReport, len(outcomes))
	for i, o := range outcomes {
		reports[i] = o.Report()
	}

	resp := &types.SearchResponse{
		Results:   page,
		Total:     total,
		Page:      q.Page,
		PageSize:  q.PageSize,
		HasMore:   hasMore,
		Coverage:  coverage,
		Providers: reports,
		Elapsed:   time.Since(start),
	}
	span.SetAttributes(attribute.Int("search.total", total))
	s.metrics.ObserveSearch(string(q.Type), "ok", resp.Elapsed, total)

	log.Info("search completed",
		zap.String("type", string(q.Type)),
		zap.Int("page", q.Page),
		zap.Int("providers", len(outcomes)),
		zap.Int("total", total),
		zap.Int("returned", len(page)),
		zap.Duration("elapsed", resp.Elapsed),
	)

	s.record(ctx, q, resp)
	return resp, nil
}

// record writes resp to the history store, logging rather than returning
// any failure.
func (s *Service) record(ctx context.Context, q types.Query, resp *types.SearchResponse) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyTimeout)
	defer cancel()
	if err := s.history.Record(ctx, q, resp); err != nil {
		s.logger.Warn("recording search history failed", zap.Error(err))
	}
}

// IsCallerError reports whether err was caused by invalid request input.
func IsCallerError(err error) bool {
	return errors.Is(err, types.ErrInvalidQuery)
}

// filterLabel keeps the metric label set bounded for invalid type filters.
func filterLabel(raw string) string {
	f, err := types.ParseTypeFilter(raw)
	if err != nil {
		return "invalid"
	}
	return string(f)
}
