// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/openresources/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// tick makes the store clock advance one second per call from base.
func tick(s *Store, base time.Time) {
	n := 0
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func response(total int) *types.SearchResponse {
	return &types.SearchResponse{
		Results:  make([]types.RankedResult, min(total, 2)),
		Total:    total,
		Page:     1,
		PageSize: 2,
		Coverage: types.Coverage{"arxiv": total, "youtube": 0},
		Providers: []types.ProviderReport{
			{Source: "arxiv", Status: types.StatusOK, Count: total, ElapsedMs: 80},
			{Source: "youtube", Status: types.StatusError, Error: "missing credential"},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func query(text string) types.Query {
	return types.Query{Text: text, Type: types.FilterAll, Page: 1, PageSize: 2}
}

// --- tests ---

func TestRecordAndRecent(t *testing.T) {
	s := testStore(t)
	tick(s, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i, text := range []string{"lidar slam", "protein folding", "soft robotics"} {
		if err := s.Record(ctx, query(text), response(i+1)); err != nil {
			t.Fatalf("Record(%q): %v", text, err)
		}
	}

	entries, err := s.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Query != "soft robotics" || entries[2].Query != "lidar slam" {
		t.Errorf("order = %q, %q, %q; want newest first", entries[0].Query, entries[1].Query, entries[2].Query)
	}

	e := entries[0]
	if e.Total != 3 || e.Returned != 2 || e.Type != "all" || e.PageSize != 2 {
		t.Errorf("entry = %+v", e)
	}
	if e.Coverage["arxiv"] != 3 || e.Coverage["youtube"] != 0 {
		t.Errorf("coverage = %v", e.Coverage)
	}
	if len(e.Providers) != 2 || e.Providers[1].Error != "missing credential" {
		t.Errorf("providers = %+v", e.Providers)
	}
	if e.ElapsedMs != 1500 {
		t.Errorf("elapsed = %d", e.ElapsedMs)
	}
	if !e.CreatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 3, 0, time.UTC)) {
		t.Errorf("created_at = %v", e.CreatedAt)
	}
	if e.ID == "" {
		t.Error("missing id")
	}
}

func TestRecentLimit(t *testing.T) {
	s := testStore(t)
	tick(s, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()
	for range 5 {
		if err := s.Record(ctx, query("q"), response(1)); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestRecentEmpty(t *testing.T) {
	entries, err := testStore(t).Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %v, want empty non-nil", entries)
	}
}

func TestGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Record(ctx, query("graph neural networks"), response(4)); err != nil {
		t.Fatal(err)
	}
	entries, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, entries[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Query != "graph neural networks" {
		t.Errorf("query = %q", got.Query)
	}

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestPrune(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick(s, base)
	ctx := context.Background()
	for range 4 {
		if err := s.Record(ctx, query("q"), response(1)); err != nil {
			t.Fatal(err)
		}
	}

	// Entries sit at base+1s .. base+4s.
	n, err := s.Prune(ctx, base.Add(2500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}
	entries, _ := s.Recent(ctx, 10)
	if len(entries) != 2 {
		t.Errorf("%d entries left, want 2", len(entries))
	}
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Record(context.Background(), query("x"), response(0)); err != nil {
		t.Fatal(err)
	}
	entries, err := s.Recent(context.Background(), 5)
	if err != nil || len(entries) != 1 {
		t.Errorf("entries = %v, err = %v", entries, err)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record(context.Background(), query("persist"), response(1)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	entries, err := s.Recent(context.Background(), 5)
	if err != nil || len(entries) != 1 || entries[0].Query != "persist" {
		t.Errorf("entries = %+v, err = %v", entries, err)
	}
}
