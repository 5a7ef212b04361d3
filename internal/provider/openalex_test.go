// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/openresources/pkg/types"
)

const sampleOpenAlexJSON = `{
  "meta": {"count": 2, "per_page": 20, "page": 1},
  "results": [
    {
      "id": "https://openalex.org/W2963403868",
      "title": "Attention Is All You Need",
      "doi": "https://doi.org/10.5555/3295222.3295349",
      "type": "article",
      "publication_date": "2017-06-12",
      "publication_year": 2017,
      "authorships": [
        {"author": {"id": "A1", "display_name": "Ashish Vaswani"}},
        {"author": {"id": "A2", "display_name": "Noam Shazeer"}}
      ],
      "abstract_inverted_index": {"We": [0], "propose": [1], "attention": [2]},
      "keywords": [{"display_name": "Transformer"}],
      "primary_location": {"license": "cc-by"}
    },
    {
      "id": "https://openalex.org/W3210812345",
      "title": "ERA5 Hourly Reanalysis",
      "doi": null,
      "type": "dataset",
      "publication_year": 2020,
      "authorships": [],
      "abstract_inverted_index": {},
      "best_oa_location": {"license": "cc0"}
    }
  ]
}`

func openAlexTestServer(statusCode int, body string, captured **http.Request) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = r
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprint(w, body)
	}))
}

func TestOpenAlexSearch(t *testing.T) {
	var req *http.Request
	ts := openAlexTestServer(http.StatusOK, sampleOpenAlexJSON, &req)
	defer ts.Close()

	old := openAlexSearchBase
	openAlexSearchBase = ts.URL
	defer func() { openAlexSearchBase = old }()

	b := &OpenAlex{Options: Options{Client: ts.Client()}, Email: "test@example.com"}
	results, err := b.Search(context.Background(), types.Query{Text: "attention", Type: types.FilterAll}, 20)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := req.URL.Query().Get("mailto"); got != "test@example.com" {
		t.Errorf("mailto = %q", got)
	}
	if got := req.URL.Query().Get("filter"); got != "" {
		t.Errorf("filter = %q, want none for all", got)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	r0 := results[0]
	if r0.ID != "W2963403868" {
		t.Errorf("ID = %q", r0.ID)
	}
	if r0.URL != "https://doi.org/10.5555/3295222.3295349" {
		t.Errorf("URL = %q, want DOI resolver", r0.URL)
	}
	if r0.Type != types.TypePaper {
		t.Errorf("Type = %q, want paper", r0.Type)
	}
	if r0.Description != "We propose attention" {
		t.Errorf("Description = %q", r0.Description)
	}
	if r0.License != "cc-by" {
		t.Errorf("License = %q", r0.License)
	}
	if len(r0.Tags) != 1 || r0.Tags[0] != "Transformer" {
		t.Errorf("Tags = %v", r0.Tags)
	}

	r1 := results[1]
	if r1.Type != types.TypeDataset {
		t.Errorf("Type = %q, want dataset", r1.Type)
	}
	if r1.URL != "https://openalex.org/W3210812345" {
		t.Errorf("URL = %q, want OpenAlex id fallback", r1.URL)
	}
	if r1.License != "cc0" {
		t.Errorf("License = %q, want best OA location license", r1.License)
	}
	if r1.Year == nil || *r1.Year != 2020 {
		t.Errorf("Year = %v", r1.Year)
	}
	if r1.Description != "" {
		t.Errorf("Description = %q, want empty", r1.Description)
	}
}

func TestOpenAlexTypeFilter(t *testing.T) {
	tests := []struct {
		filter types.TypeFilter
		want   string
	}{
		{types.FilterAll, ""},
		{types.TypeFilter(types.TypeDataset), "type:dataset"},
		{types.TypeFilter(types.TypePaper), "type:!dataset"},
	}
	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			var req *http.Request
			ts := openAlexTestServer(http.StatusOK, `{"results":[]}`, &req)
			defer ts.Close()

			b := &OpenAlex{Options: Options{Client: ts.Client(), BaseURL: ts.URL}}
			if _, err := b.Search(context.Background(), types.Query{Text: "x", Type: tt.filter}, 5); err != nil {
				t.Fatalf("Search: %v", err)
			}
			if got := req.URL.Query().Get("filter"); got != tt.want {
				t.Errorf("filter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenAlexPerPageCapped(t *testing.T) {
	var req *http.Request
	ts := openAlexTestServer(http.StatusOK, `{"results":[]}`, &req)
	defer ts.Close()

	b := &OpenAlex{Options: Options{Client: ts.Client(), BaseURL: ts.URL}}
	if _, err := b.Search(context.Background(), types.Query{Text: "x"}, 1000); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got := req.URL.Query().Get("per_page"); got != "200" {
		t.Errorf("per_page = %q, want 200", got)
	}
}

func TestOpenAlexMalformedJSON(t *testing.T) {
	ts := openAlexTestServer(http.StatusOK, `{not json`, nil)
	defer ts.Close()

	b := &OpenAlex{Options: Options{Client: ts.Client(), BaseURL: ts.URL}}
	_, err := b.Search(context.Background(), types.Query{Text: "x"}, 5)
	if err == nil || !strings.Contains(err.Error(), "parsing OpenAlex response") {
		t.Errorf("err = %v", err)
	}
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"nil", nil, ""},
		{"ordered", map[string][]int{"hello": {0}, "world": {1}}, "hello world"},
		{"repeated word", map[string][]int{"the": {0, 2}, "cat": {1}, "hat": {3}}, "the cat the hat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconstructAbstract(tt.index); got != tt.want {
				t.Errorf("reconstructAbstract() = %q, want %q", got, tt.want)
			}
		})
	}
}
