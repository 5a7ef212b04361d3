// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/openresources/internal/metrics"
	"github.com/pdiddy/openresources/internal/provider"
	"github.com/pdiddy/openresources/internal/registry"
	"github.com/pdiddy/openresources/internal/telemetry"
	"github.com/pdiddy/openresources/pkg/types"
)

// DefaultDeadline is the shared per-request budget for provider calls.
const DefaultDeadline = 6 * time.Second

// Coordinator fans a query out to the registry's providers and collects
// one outcome per provider within a shared deadline.
type Coordinator struct {
	Registry *registry.Registry

	// Deadline bounds every provider call of one request. Zero selects
	// DefaultDeadline.
	Deadline time.Duration

	// Limit is the number of results requested from each provider.
	Limit int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Tracer  trace.Tracer
}

func (c *Coordinator) deadline() time.Duration {
	if c.Deadline > 0 {
		return c.Deadline
	}
	return DefaultDeadline
}

func (c *Coordinator) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func (c *Coordinator) tracer() trace.Tracer {
	if c.Tracer != nil {
		return c.Tracer
	}
	return telemetry.Tracer()
}

// Dispatch invokes every provider that handles q.Type concurrently and
// returns their outcomes in registry order together with the coverage map.
// It returns by the shared deadline even when a provider ignores
// cancellation; such providers are reported as timed out. Provider failures
// never fail the call.
func (c *Coordinator) Dispatch(ctx context.Context, q types.Query) ([]types.AdapterOutcome, types.Coverage) {
	entries := c.Registry.AdaptersFor(q.Type)
	outcomes := make([]types.AdapterOutcome, len(entries))
	coverage := make(types.Coverage, len(entries))
	if len(entries) == 0 {
		return outcomes, coverage
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.deadline())
	defer cancel()

	// Buffered so late senders never block after we stop listening.
	ch := make(chan slot, len(entries))
	for i, e := range entries {
		go func() {
			ch <- slot{index: i, outcome: c.call(ctx, e, q)}
		}()
	}

	filled := gather(ctx, ch, outcomes)
	for i, e := range entries {
		if !filled[i] {
			outcomes[i] = types.AdapterOutcome{
				Source:      e.Name(),
				Status:      types.StatusTimeout,
				ErrorDetail: context.DeadlineExceeded.Error(),
				ElapsedMs:   time.Since(start).Milliseconds(),
			}
		}
		o := outcomes[i]
		coverage[o.Source] = 0
		if o.Status == types.StatusOK {
			coverage[o.Source] = len(o.Results)
		}
	}
	return outcomes, coverage
}

// slot carries one outcome back to Dispatch with its registry position.
type slot struct {
	index   int
	outcome types.AdapterOutcome
}

// gather stores outcomes from ch until every slot is filled or ctx is done.
// Outcomes already queued when ctx ends are still taken. It reports which
// slots were filled.
func gather(ctx context.Context, ch <-chan slot, outcomes []types.AdapterOutcome) []bool {
	filled := make([]bool, len(outcomes))
	take := func(s slot) {
		outcomes[s.index] = s.outcome
		filled[s.index] = true
	}
collect:
	for range outcomes {
		select {
		case s := <-ch:
			take(s)
		case <-ctx.Done():
			break collect
		}
	}
	for {
		select {
		case s := <-ch:
			take(s)
		default:
			return filled
		}
	}
}

// call runs one provider under its own timeout and records the outcome.
func (c *Coordinator) call(ctx context.Context, e registry.Entry, q types.Query) types.AdapterOutcome {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	ctx, span := c.tracer().Start(ctx, "provider.search",
		trace.WithAttributes(
			attribute.String("provider.source", e.Name()),
			attribute.String("query.type", string(q.Type)),
		),
	)
	defer span.End()

	out := provider.Fetch(ctx, e.Backend, q, c.Limit)

	span.SetAttributes(
		attribute.String("provider.status", string(out.Status)),
		attribute.Int("provider.results", len(out.Results)),
	)
	fields := []zap.Field{
		zap.String("source", out.Source),
		zap.String("status", string(out.Status)),
		zap.Int("results", len(out.Results)),
		zap.Int64("elapsed_ms", out.ElapsedMs),
	}
	switch out.Status {
	case types.StatusError, types.StatusTimeout:
		span.SetStatus(codes.Error, out.ErrorDetail)
		c.logger().Warn("provider call failed", append(fields, zap.String("error", out.ErrorDetail))...)
	default:
		c.logger().Debug("provider call finished", fields...)
	}
	c.Metrics.ObserveProvider(out)
	return out
}
