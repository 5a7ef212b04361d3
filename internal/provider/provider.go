// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider adapts external resource APIs (paper indexes, dataset
// catalogs, code hosts, model hubs, hardware registries, video platforms)
// into normalized results, and runs them behind a deadline-bound boundary.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/pdiddy/openresources/pkg/types"
)

// Backend searches a single external provider. Each provider implements
// this interface; the registry decides which backends answer a query.
type Backend interface {
	Name() string

	// Types lists the resource types the backend is allowed to produce.
	Types() []types.ResourceType

	// Search asks the provider for at most limit results. Implementations
	// pass ctx to their network calls but need not return promptly on
	// cancellation: Fetch stops waiting at the deadline either way.
	Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error)
}

// Options carries the settings shared by the HTTP backends.
type Options struct {
	Client    *http.Client
	UserAgent string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the provider credential, when one is used.
	APIKey string
}

func (o Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o Options) base(def string) string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return def
}

// ErrMissingCredential is returned by backends whose provider refuses
// anonymous access.
var ErrMissingCredential = errors.New("missing credential")

// Fetch runs one backend call for q and converts whatever happens into an
// AdapterOutcome. It never blocks past the deadline carried by ctx and never
// panics: errors, panics and malformed results become data.
func Fetch(ctx context.Context, b Backend, q types.Query, limit int) types.AdapterOutcome {
	start := time.Now()
	out := types.AdapterOutcome{Source: b.Name()}

	type reply struct {
		results []types.NormalizedResult
		err     error
	}
	// Buffered so an abandoned call can still deliver and exit.
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		results, err := b.Search(ctx, q, limit)
		ch <- reply{results: results, err: err}
	}()

	r, ok := receive[reply](ctx, ch)
	switch {
	case !ok:
		out.Status = types.StatusTimeout
		out.ErrorDetail = ctx.Err().Error()
	case r.err != nil && (errors.Is(r.err, context.DeadlineExceeded) || ctx.Err() != nil):
		out.Status = types.StatusTimeout
		out.ErrorDetail = r.err.Error()
	case r.err != nil:
		out.Status = types.StatusError
		out.ErrorDetail = r.err.Error()
	default:
		out.Results = Sanitize(b, r.results, limit)
		out.Status = types.StatusOK
		if len(out.Results) == 0 {
			out.Status = types.StatusEmpty
		}
	}
	out.ElapsedMs = time.Since(start).Milliseconds()
	return out
}

// receive waits for a value on ch until ctx is done. A value that is
// already waiting when ctx ends is still returned.
func receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-ctx.Done():
	}
	select {
	case v := <-ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Sanitize stamps the backend name on each result, drops results of a type
// the backend does not produce or that fail validation, fills missing ids,
// and caps the list at limit (when positive).
func Sanitize(b Backend, results []types.NormalizedResult, limit int) []types.NormalizedResult {
	allowed := b.Types()
	var kept []types.NormalizedResult
	for _, r := range results {
		if !slices.Contains(allowed, r.Type) {
			continue
		}
		r.Source = b.Name()
		r.Normalize()
		r.EnsureID()
		if r.Validate() != nil {
			continue
		}
		kept = append(kept, r)
		if limit > 0 && len(kept) == limit {
			break
		}
	}
	return kept
}

// WithTypes narrows a backend to a configured subset of its types.
func WithTypes(b Backend, ts []types.ResourceType) Backend {
	return typed{Backend: b, types: ts}
}

type typed struct {
	Backend
	types []types.ResourceType
}

func (t typed) Types() []types.ResourceType { return t.types }

// positionScore turns a provider's result rank into a [0.1, 1] signal.
func positionScore(i, total int) *float64 {
	if total <= 1 {
		return types.FloatPtr(1.0)
	}
	return types.FloatPtr(1.0 - float64(i)/float64(total-1)*0.9)
}

// yearOf extracts a plausible year from a date string starting with YYYY.
func yearOf(s string) *int {
	if len(s) < 4 {
		return nil
	}
	y := 0
	for _, c := range s[:4] {
		if c < '0' || c > '9' {
			return nil
		}
		y = y*10 + int(c-'0')
	}
	if y < 1000 {
		return nil
	}
	return &y
}
