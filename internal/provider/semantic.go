// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/openresources/internal/httputil"
	"github.com/pdiddy/openresources/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,url,fieldsOfStudy"

// SemanticScholar queries the Semantic Scholar Graph API for papers. The
// API key is optional; without one the shared rate limit applies.
type SemanticScholar struct {
	Options
}

// Name returns the backend identifier.
func (b *SemanticScholar) Name() string { return "semantic_scholar" }

// Types returns the resource types Semantic Scholar produces.
func (b *SemanticScholar) Types() []types.ResourceType {
	return []types.ResourceType{types.TypePaper}
}

// Search queries Semantic Scholar and maps papers to results.
func (b *SemanticScholar) Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{
		"query":  {q.Text},
		"limit":  {strconv.Itoa(limit)},
		"fields": {semanticFields},
	}
	req := httputil.Request{
		Provider:  "Semantic Scholar",
		URL:       b.base(semanticAPIBase) + "?" + params.Encode(),
		UserAgent: b.UserAgent,
	}
	if b.APIKey != "" {
		req.Header = http.Header{"x-api-key": {b.APIKey}}
	}

	var sr semanticResponse
	if err := httputil.GetJSON(ctx, b.client(), req, &sr); err != nil {
		return nil, err
	}

	total := len(sr.Data)
	results := make([]types.NormalizedResult, 0, total)
	for i, paper := range sr.Data {
		r := types.NormalizedResult{
			ID:          paper.PaperID,
			Type:        types.TypePaper,
			Title:       paper.Title,
			Description: paper.Abstract,
			URL:         semanticCanonicalURL(paper),
			Tags:        paper.FieldsOfStudy,
			RawScore:    positionScore(i, total),
		}
		for _, a := range paper.Authors {
			r.Authors = append(r.Authors, a.Name)
		}
		if paper.Year > 0 {
			r.Year = types.IntPtr(paper.Year)
		}
		results = append(results, r)
	}
	return results, nil
}

// semanticCanonicalURL prefers the arXiv landing page, then the DOI
// resolver, then Semantic Scholar's own page.
func semanticCanonicalURL(p semanticPaper) string {
	switch {
	case p.ExternalIDs.ArXiv != "":
		return arxivAbsURL(p.ExternalIDs.ArXiv)
	case p.ExternalIDs.DOI != "":
		return doiURL(p.ExternalIDs.DOI)
	default:
		return p.URL
	}
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Abstract      string              `json:"abstract"`
	Year          int                 `json:"year"`
	URL           string              `json:"url"`
	FieldsOfStudy []string            `json:"fieldsOfStudy"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI      string `json:"DOI"`
	ArXiv    string `json:"ArXiv"`
	CorpusID int    `json:"CorpusId"`
}
