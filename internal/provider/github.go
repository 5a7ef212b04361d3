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

// githubSearchBase is the GitHub repository search endpoint. Declared as a
// var so tests can substitute an httptest server.
var githubSearchBase = "https://api.github.com/search/repositories"

// GitHub queries GitHub repository search for code. A token raises the
// rate limit but is not required.
type GitHub struct {
	Options
}

// Name returns the backend identifier.
func (b *GitHub) Name() string { return "github" }

// Types returns the resource types GitHub produces.
func (b *GitHub) Types() []types.ResourceType { return []types.ResourceType{types.TypeCode} }

// Search queries GitHub and maps repositories to code results.
func (b *GitHub) Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty GitHub query")
	}
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}

	params := url.Values{
		"q":        {q.Text},
		"per_page": {strconv.Itoa(limit)},
	}
	req := httputil.Request{
		Provider:  "GitHub",
		URL:       b.base(githubSearchBase) + "?" + params.Encode(),
		UserAgent: b.UserAgent,
		Header:    http.Header{"X-GitHub-Api-Version": {"2022-11-28"}},
	}
	if b.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.APIKey)
	}

	var gr githubResponse
	if err := httputil.GetJSON(ctx, b.client(), req, &gr); err != nil {
		return nil, err
	}

	results := make([]types.NormalizedResult, 0, len(gr.Items))
	for _, repo := range gr.Items {
		r := types.NormalizedResult{
			ID:          strconv.FormatInt(repo.ID, 10),
			Type:        types.TypeCode,
			Title:       repo.FullName,
			Description: repo.Description,
			URL:         repo.HTMLURL,
			Tags:        repo.Topics,
			Year:        yearOf(repo.CreatedAt),
			RawScore:    types.FloatPtr(repo.Score),
		}
		if repo.Owner.Login != "" {
			r.Authors = []string{repo.Owner.Login}
		}
		if repo.License != nil && repo.License.SPDXID != "" && repo.License.SPDXID != "NOASSERTION" {
			r.License = repo.License.SPDXID
		}
		results = append(results, r)
	}
	return results, nil
}

// GitHub API JSON structures.
type githubResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []githubRepo `json:"items"`
}

type githubRepo struct {
	ID          int64          `json:"id"`
	FullName    string         `json:"full_name"`
	HTMLURL     string         `json:"html_url"`
	Description string         `json:"description"`
	Topics      []string       `json:"topics"`
	CreatedAt   string         `json:"created_at"`
	Score       float64        `json:"score"`
	Owner       githubOwner    `json:"owner"`
	License     *githubLicense `json:"license"`
}

type githubOwner struct {
	Login string `json:"login"`
}

type githubLicense struct {
	SPDXID string `json:"spdx_id"`
}
