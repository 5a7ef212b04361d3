// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/openresources/internal/provider"
	"github.com/pdiddy/openresources/internal/registry"
	"github.com/pdiddy/openresources/pkg/types"
)

// --- stub backend ---

type stubBackend struct {
	name    string
	types   []types.ResourceType
	results []types.NormalizedResult
	err     error

	// delay is honoured with ctx; block ignores ctx until released.
	delay time.Duration
	block <-chan struct{}

	calls atomic.Int32
}

func (s *stubBackend) Name() string                { return s.name }
func (s *stubBackend) Types() []types.ResourceType { return s.types }

func (s *stubBackend) Search(ctx context.Context, _ types.Query, _ int) ([]types.NormalizedResult, error) {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.results, s.err
}

func paper(id, title, url string) types.NormalizedResult {
	return types.NormalizedResult{ID: id, Type: types.TypePaper, Title: title, URL: url}
}

func mustRegistry(t *testing.T, backends ...*stubBackend) *registry.Registry {
	t.Helper()
	entries := make([]registry.Entry, len(backends))
	for i, b := range backends {
		entries[i] = registry.Entry{Backend: b, Enabled: true}
	}
	reg, err := registry.New(entries...)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func mustQuery(t *testing.T, text, typ string, page, size int) types.Query {
	t.Helper()
	q, err := types.NewQuery(text, typ, page, size)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	return q
}

var paperOnly = []types.ResourceType{types.TypePaper}

// --- Coordinator ---

func TestDispatchKeepsRegistryOrder(t *testing.T) {
	slow := &stubBackend{name: "slow", types: paperOnly, delay: 60 * time.Millisecond,
		results: []types.NormalizedResult{paper("1", "Slow paper", "https://s/1")}}
	fast := &stubBackend{name: "fast", types: paperOnly,
		results: []types.NormalizedResult{paper("2", "Fast paper", "https://f/2")}}
	mid := &stubBackend{name: "mid", types: paperOnly, delay: 20 * time.Millisecond}

	c := &Coordinator{Registry: mustRegistry(t, slow, fast, mid), Deadline: time.Second}
	outcomes, coverage := c.Dispatch(context.Background(), mustQuery(t, "paper", "all", 1, 10))

	want := []string{"slow", "fast", "mid"}
	if len(outcomes) != len(want) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(want))
	}
	for i, name := range want {
		if outcomes[i].Source != name {
			t.Errorf("outcomes[%d].Source = %q, want %q", i, outcomes[i].Source, name)
		}
	}
	if outcomes[2].Status != types.StatusEmpty {
		t.Errorf("mid status = %s, want empty", outcomes[2].Status)
	}
	if coverage["slow"] != 1 || coverage["fast"] != 1 || coverage["mid"] != 0 {
		t.Errorf("coverage = %v", coverage)
	}
}

func TestDispatchCoverageOnFailures(t *testing.T) {
	ok := &stubBackend{name: "ok", types: paperOnly,
		results: []types.NormalizedResult{paper("1", "A", "https://a/1"), paper("2", "B", "https://a/2")}}
	broken := &stubBackend{name: "broken", types: paperOnly, err: errors.New("HTTP 503")}
	slow := &stubBackend{name: "slow", types: paperOnly, delay: 5 * time.Second}

	c := &Coordinator{Registry: mustRegistry(t, ok, broken, slow), Deadline: 80 * time.Millisecond}
	outcomes, coverage := c.Dispatch(context.Background(), mustQuery(t, "x", "all", 1, 10))

	wantStatus := map[string]types.AdapterStatus{
		"ok": types.StatusOK, "broken": types.StatusError, "slow": types.StatusTimeout,
	}
	for _, o := range outcomes {
		if o.Status != wantStatus[o.Source] {
			t.Errorf("%s status = %s, want %s", o.Source, o.Status, wantStatus[o.Source])
		}
	}
	if len(coverage) != 3 {
		t.Fatalf("coverage has %d entries, want 3: %v", len(coverage), coverage)
	}
	if coverage["ok"] != 2 || coverage["broken"] != 0 || coverage["slow"] != 0 {
		t.Errorf("coverage = %v", coverage)
	}
}

func TestDispatchReturnsAtDeadlineWhenBackendIgnoresContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	stuck := &stubBackend{name: "stuck", types: paperOnly, block: release}
	c := &Coordinator{Registry: mustRegistry(t, stuck), Deadline: 50 * time.Millisecond}

	start := time.Now()
	outcomes, coverage := c.Dispatch(context.Background(), mustQuery(t, "x", "all", 1, 10))
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Dispatch took %v, want about 50ms", elapsed)
	}
	if outcomes[0].Status != types.StatusTimeout {
		t.Errorf("status = %s, want timeout", outcomes[0].Status)
	}
	if coverage["stuck"] != 0 {
		t.Errorf("coverage = %v", coverage)
	}
}

func TestGatherKeepsOutcomesQueuedAtDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 200; i++ {
		ch := make(chan slot, 3)
		ch <- slot{index: 2, outcome: types.AdapterOutcome{Source: "c", Status: types.StatusOK}}
		ch <- slot{index: 0, outcome: types.AdapterOutcome{Source: "a", Status: types.StatusEmpty}}

		outcomes := make([]types.AdapterOutcome, 3)
		filled := gather(ctx, ch, outcomes)
		if !filled[0] || filled[1] || !filled[2] {
			t.Fatalf("iteration %d: filled = %v, want [true false true]", i, filled)
		}
		if outcomes[0].Source != "a" || outcomes[2].Source != "c" {
			t.Fatalf("iteration %d: outcomes = %+v", i, outcomes)
		}
	}
}

func TestDispatchPerProviderTimeout(t *testing.T) {
	slow := &stubBackend{name: "slow", types: paperOnly, delay: 500 * time.Millisecond}
	fast := &stubBackend{name: "fast", types: paperOnly,
		results: []types.NormalizedResult{paper("1", "A", "https://a/1")}}

	reg, err := registry.New(
		registry.Entry{Backend: slow, Enabled: true, Timeout: 30 * time.Millisecond},
		registry.Entry{Backend: fast, Enabled: true},
	)
	if err != nil {
		t.Fatal(err)
	}
	c := &Coordinator{Registry: reg, Deadline: 5 * time.Second}

	start := time.Now()
	outcomes, _ := c.Dispatch(context.Background(), mustQuery(t, "x", "all", 1, 10))
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("Dispatch took %v; per-provider timeout not applied", elapsed)
	}
	if outcomes[0].Status != types.StatusTimeout {
		t.Errorf("slow status = %s, want timeout", outcomes[0].Status)
	}
	if outcomes[1].Status != types.StatusOK {
		t.Errorf("fast status = %s, want ok", outcomes[1].Status)
	}
}

func TestDispatchSelectsByTypeAffinity(t *testing.T) {
	papers := &stubBackend{name: "papers", types: paperOnly}
	videos := &stubBackend{name: "videos", types: []types.ResourceType{types.TypeVideo}}
	c := &Coordinator{Registry: mustRegistry(t, papers, videos), Deadline: time.Second}

	outcomes, coverage := c.Dispatch(context.Background(), mustQuery(t, "x", "video", 1, 10))
	if len(outcomes) != 1 || outcomes[0].Source != "videos" {
		t.Fatalf("outcomes = %+v, want only videos", outcomes)
	}
	if _, ok := coverage["papers"]; ok {
		t.Error("unselected provider must not appear in coverage")
	}
	if papers.calls.Load() != 0 {
		t.Error("paper backend was called for a video query")
	}
}

func TestDispatchNoAdapters(t *testing.T) {
	c := &Coordinator{Registry: mustRegistry(t)}
	outcomes, coverage := c.Dispatch(context.Background(), mustQuery(t, "x", "all", 1, 10))
	if len(outcomes) != 0 || len(coverage) != 0 {
		t.Errorf("got %v / %v, want empty", outcomes, coverage)
	}
}

// --- Service ---

type recorder struct {
	calls atomic.Int32
	err   error
	last  *types.SearchResponse
}

func (r *recorder) Record(_ context.Context, _ types.Query, resp *types.SearchResponse) error {
	r.calls.Add(1)
	r.last = resp
	return r.err
}

func TestServiceClimateModelScenario(t *testing.T) {
	a := &stubBackend{name: "A", types: paperOnly, results: []types.NormalizedResult{
		{ID: "a1", Type: types.TypePaper, Title: "A climate model for the tropics", URL: "https://a.example/1", Year: types.IntPtr(2024)},
		{ID: "a2", Type: types.TypePaper, Title: "Ocean heat transport", Description: "We couple a climate model", URL: "https://a.example/2"},
	}}
	// B answers its first call and never finishes its second one.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/videos" {
			<-r.Context().Done()
			return
		}
		fmt.Fprint(w, `{"items":[{"id":{"videoId":"b1"},"snippet":{"title":"Global climate reanalysis","channelTitle":"Reanalysis Lab"}}]}`)
	}))
	defer ts.Close()
	b := &provider.YouTube{Options: provider.Options{Client: ts.Client(), BaseURL: ts.URL, APIKey: "k"}}
	c := &stubBackend{name: "C", types: paperOnly, err: errors.New("connection refused")}

	reg, err := registry.New(
		registry.Entry{Backend: a, Enabled: true},
		registry.Entry{Backend: b, Enabled: true},
		registry.Entry{Backend: c, Enabled: true},
	)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	svc := NewService(reg, types.SearchConfig{Deadline: time.Second})
	resp, err := svc.Search(context.Background(), RawQuery{Text: "climate model", Type: "all", Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if resp.Total != 3 {
		t.Errorf("Total = %d, want 3", resp.Total)
	}
	want := types.Coverage{"A": 2, "youtube": 1, "C": 0}
	for k, v := range want {
		if resp.Coverage[k] != v {
			t.Errorf("coverage[%s] = %d, want %d", k, resp.Coverage[k], v)
		}
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(resp.Results))
	}
	if resp.Results[0].Score < resp.Results[1].Score {
		t.Errorf("results not in descending score order: %v, %v", resp.Results[0].Score, resp.Results[1].Score)
	}
	if resp.Results[0].ID != "a1" {
		t.Errorf("top result = %s, want a1 (both terms in title)", resp.Results[0].ID)
	}
	if !resp.HasMore {
		t.Error("HasMore = false, want true")
	}
	if len(resp.Providers) != 3 || resp.Providers[1].Status != types.StatusOK || resp.Providers[2].Status != types.StatusError {
		t.Errorf("providers = %+v", resp.Providers)
	}
}

func TestServiceCallerErrorsSkipProviders(t *testing.T) {
	b := &stubBackend{name: "p", types: paperOnly}
	svc := NewService(mustRegistry(t, b), types.SearchConfig{})

	for _, raw := range []RawQuery{
		{Text: ""},
		{Text: "   "},
		{Text: "ok", Type: "podcast"},
		{Text: "ok", Page: -1},
		{Text: "ok", PageSize: -5},
	} {
		_, err := svc.Search(context.Background(), raw)
		if !IsCallerError(err) {
			t.Errorf("Search(%+v) err = %v, want caller error", raw, err)
		}
	}
	if n := b.calls.Load(); n != 0 {
		t.Errorf("backend called %d times for invalid queries", n)
	}
}

func TestServiceAllProvidersFail(t *testing.T) {
	x := &stubBackend{name: "x", types: paperOnly, err: errors.New("boom")}
	y := &stubBackend{name: "y", types: paperOnly, delay: time.Second}
	svc := NewService(mustRegistry(t, x, y), types.SearchConfig{Deadline: 50 * time.Millisecond})

	resp, err := svc.Search(context.Background(), RawQuery{Text: "anything"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Total != 0 || resp.HasMore || len(resp.Results) != 0 {
		t.Errorf("resp = %+v, want empty", resp)
	}
	if resp.Results == nil {
		t.Error("Results must be an empty slice, not nil")
	}
	if resp.Coverage["x"] != 0 || resp.Coverage["y"] != 0 || len(resp.Coverage) != 2 {
		t.Errorf("coverage = %v", resp.Coverage)
	}
}

func TestServicePageBeyondEnd(t *testing.T) {
	b := &stubBackend{name: "p", types: paperOnly, results: []types.NormalizedResult{
		paper("1", "one", "https://x/1"), paper("2", "two", "https://x/2"),
	}}
	svc := NewService(mustRegistry(t, b), types.SearchConfig{})

	resp, err := svc.Search(context.Background(), RawQuery{Text: "one", Page: 9, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 0 || resp.HasMore || resp.Total != 2 || resp.Page != 9 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestServicePageSizeDefaultsAndClamp(t *testing.T) {
	b := &stubBackend{name: "p", types: paperOnly}
	svc := NewService(mustRegistry(t, b), types.SearchConfig{DefaultPageSize: 15})

	resp, err := svc.Search(context.Background(), RawQuery{Text: "x", PageSize: 500})
	if err != nil {
		t.Fatal(err)
	}
	if resp.PageSize != types.MaxPageSize {
		t.Errorf("PageSize = %d, want %d", resp.PageSize, types.MaxPageSize)
	}

	resp, err = svc.Search(context.Background(), RawQuery{Text: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.PageSize != 15 || resp.Page != 1 {
		t.Errorf("page/size = %d/%d, want 1/15", resp.Page, resp.PageSize)
	}
}

func TestServiceRecordsHistoryBestEffort(t *testing.T) {
	b := &stubBackend{name: "p", types: paperOnly,
		results: []types.NormalizedResult{paper("1", "graph", "https://x/1")}}
	rec := &recorder{err: errors.New("disk full")}
	svc := NewService(mustRegistry(t, b), types.SearchConfig{}, WithHistory(rec))

	resp, err := svc.Search(context.Background(), RawQuery{Text: "graph"})
	if err != nil {
		t.Fatalf("history failure surfaced: %v", err)
	}
	if rec.calls.Load() != 1 || rec.last != resp {
		t.Errorf("history calls = %d", rec.calls.Load())
	}

	if _, err := svc.Search(context.Background(), RawQuery{Text: ""}); err == nil {
		t.Fatal("expected caller error")
	}
	if rec.calls.Load() != 1 {
		t.Error("invalid queries must not be recorded")
	}
}

func TestServiceRegistry(t *testing.T) {
	reg := mustRegistry(t)
	if NewService(reg, types.SearchConfig{}).Registry() != reg {
		t.Error("Registry() did not return the configured registry")
	}
}
