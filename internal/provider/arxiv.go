// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/openresources/internal/httputil"
	"github.com/pdiddy/openresources/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// Arxiv queries the arXiv Atom API for papers.
type Arxiv struct {
	Options
}

// Name returns the backend identifier.
func (b *Arxiv) Name() string { return "arxiv" }

// Types returns the resource types arXiv produces.
func (b *Arxiv) Types() []types.ResourceType { return []types.ResourceType{types.TypePaper} }

// Search queries arXiv and maps Atom entries to paper results.
func (b *Arxiv) Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error) {
	sq := buildArxivQuery(q.Text)
	if sq == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{
		"search_query": {sq},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limit)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	reqURL := b.base(arxivAPIBase) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", b.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, b.client(), req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httputil.StatusError{Provider: "arXiv", StatusCode: resp.StatusCode}
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	total := len(feed.Items)
	var results []types.NormalizedResult
	for i, it := range feed.Items {
		arxivID := extractArxivID(it.GUID)
		if arxivID == "" {
			arxivID = extractArxivID(it.Link)
		}
		if arxivID == "" {
			continue
		}

		r := types.NormalizedResult{
			ID:          arxivID,
			Type:        types.TypePaper,
			Title:       collapseSpace(it.Title),
			Description: collapseSpace(it.Description),
			URL:         arxivAbsURL(arxivID),
			Tags:        it.Categories,
			RawScore:    positionScore(i, total),
		}
		for _, a := range it.Authors {
			if a != nil && strings.TrimSpace(a.Name) != "" {
				r.Authors = append(r.Authors, strings.TrimSpace(a.Name))
			}
		}
		if it.PublishedParsed != nil {
			r.Year = types.IntPtr(it.PublishedParsed.Year())
		}
		results = append(results, r)
	}
	return results, nil
}

// buildArxivQuery ANDs every term of the free text across all fields.
func buildArxivQuery(text string) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}
	return "all:" + strings.Join(terms, " AND all:")
}

// extractArxivID pulls the arXiv ID from an entry URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// arxivAbsURL is the canonical landing page shared by every backend that
// knows a paper's arXiv id, so duplicates merge on URL.
func arxivAbsURL(id string) string { return "https://arxiv.org/abs/" + id }

// doiURL is the canonical landing page for a bare DOI.
func doiURL(doi string) string { return "https://doi.org/" + strings.ToLower(doi) }

func collapseSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
