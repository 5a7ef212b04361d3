// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/openresources/internal/httputil"
	"github.com/pdiddy/openresources/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

const openAlexMaxPerPage = 200

// OpenAlex queries the OpenAlex Works API. Works typed "dataset" become
// dataset results; everything else is a paper.
type OpenAlex struct {
	Options

	// Email is sent as mailto parameter for polite pool access.
	Email string
}

// Name returns the backend identifier.
func (b *OpenAlex) Name() string { return "openalex" }

// Types returns the resource types OpenAlex produces.
func (b *OpenAlex) Types() []types.ResourceType {
	return []types.ResourceType{types.TypePaper, types.TypeDataset}
}

// Search queries OpenAlex and maps works to results.
func (b *OpenAlex) Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > openAlexMaxPerPage {
		limit = openAlexMaxPerPage
	}

	params := url.Values{
		"search":   {q.Text},
		"per_page": {strconv.Itoa(limit)},
		"page":     {"1"},
	}
	switch q.Type {
	case types.TypeFilter(types.TypeDataset):
		params.Set("filter", "type:dataset")
	case types.TypeFilter(types.TypePaper):
		params.Set("filter", "type:!dataset")
	}
	if b.Email != "" {
		params.Set("mailto", b.Email)
	}

	var oar openAlexResponse
	err := httputil.GetJSON(ctx, b.client(), httputil.Request{
		Provider:  "OpenAlex",
		URL:       b.base(openAlexSearchBase) + "?" + params.Encode(),
		UserAgent: b.UserAgent,
	}, &oar)
	if err != nil {
		return nil, err
	}

	total := len(oar.Results)
	results := make([]types.NormalizedResult, 0, total)
	for i, work := range oar.Results {
		r := types.NormalizedResult{
			ID:          strings.TrimPrefix(work.ID, "https://openalex.org/"),
			Type:        types.TypePaper,
			Title:       work.Title,
			Description: reconstructAbstract(work.AbstractInvertedIndex),
			License:     work.license(),
			RawScore:    positionScore(i, total),
		}
		if work.Type == "dataset" {
			r.Type = types.TypeDataset
		}

		for _, authorship := range work.Authorships {
			if authorship.Author.DisplayName != "" {
				r.Authors = append(r.Authors, authorship.Author.DisplayName)
			}
		}
		for _, kw := range work.Keywords {
			r.Tags = append(r.Tags, kw.DisplayName)
		}
		if work.PublicationYear > 0 {
			r.Year = types.IntPtr(work.PublicationYear)
		} else {
			r.Year = yearOf(work.PublicationDate)
		}

		// OpenAlex is DOI-centric; the DOI resolver is the shared landing page.
		if doi := strings.TrimPrefix(work.DOI, "https://doi.org/"); doi != "" {
			r.URL = doiURL(doi)
		} else {
			r.URL = work.ID
		}

		results = append(results, r)
	}
	return results, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	DOI                   string               `json:"doi"`
	Type                  string               `json:"type"`
	PublicationDate       string               `json:"publication_date"`
	PublicationYear       int                  `json:"publication_year"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	Keywords              []openAlexKeyword    `json:"keywords"`
	PrimaryLocation       *openAlexLocation    `json:"primary_location"`
	BestOALocation        *openAlexLocation    `json:"best_oa_location"`
}

func (w openAlexWork) license() string {
	for _, loc := range []*openAlexLocation{w.PrimaryLocation, w.BestOALocation} {
		if loc != nil && loc.License != "" {
			return loc.License
		}
	}
	return ""
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexKeyword struct {
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	License        string `json:"license"`
	LandingPageURL string `json:"landing_page_url"`
}
