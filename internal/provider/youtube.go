// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/openresources/internal/httputil"
	"github.com/pdiddy/openresources/pkg/types"
)

// youtubeAPIBase is the YouTube Data API v3 root. Declared as a var so
// tests can substitute an httptest server.
var youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// YouTube queries the YouTube Data API for videos. The API requires a key.
type YouTube struct {
	Options
}

// Name returns the backend identifier.
func (b *YouTube) Name() string { return "youtube" }

// Types returns the resource types YouTube produces.
func (b *YouTube) Types() []types.ResourceType { return []types.ResourceType{types.TypeVideo} }

// Search runs search.list for the query, then videos.list for durations
// and licenses of the hits. The second call is best-effort: when it fails
// or runs out of time the hits are returned from the search snippets alone.
func (b *YouTube) Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error) {
	if b.APIKey == "" {
		return nil, fmt.Errorf("YouTube: %w", ErrMissingCredential)
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty YouTube query")
	}
	switch {
	case limit <= 0:
		limit = 20
	case limit > 50:
		limit = 50
	}

	base := b.base(youtubeAPIBase)
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {q.Text},
		"maxResults": {strconv.Itoa(limit)},
		"key":        {b.APIKey},
	}
	var sr youtubeSearchResponse
	err := httputil.GetJSON(ctx, b.client(), httputil.Request{
		Provider:  "YouTube",
		URL:       base + "/search?" + params.Encode(),
		UserAgent: b.UserAgent,
	}, &sr)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(sr.Items))
	for _, it := range sr.Items {
		if it.ID.VideoID != "" {
			ids = append(ids, it.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	dctx, cancel := detailsContext(ctx)
	defer cancel()
	details, err := b.details(dctx, base, ids)
	if err != nil {
		details = nil
	}

	total := len(sr.Items)
	results := make([]types.NormalizedResult, 0, total)
	for i, it := range sr.Items {
		if it.ID.VideoID == "" {
			continue
		}
		d := details[it.ID.VideoID]
		r := types.NormalizedResult{
			ID:          it.ID.VideoID,
			Type:        types.TypeVideo,
			Title:       it.Snippet.Title,
			Description: it.Snippet.Description,
			URL:         "https://www.youtube.com/watch?v=" + it.ID.VideoID,
			Year:        yearOf(it.Snippet.PublishedAt),
			Tags:        it.Snippet.Tags,
			Meta: types.VideoMeta{
				Duration: d.ContentDetails.Duration,
				Channel:  it.Snippet.ChannelTitle,
			},
			RawScore: positionScore(i, total),
		}
		if len(d.Snippet.Tags) > 0 {
			r.Tags = d.Snippet.Tags
		}
		if it.Snippet.ChannelTitle != "" {
			r.Authors = []string{it.Snippet.ChannelTitle}
		}
		if d.Status.License == "creativeCommon" {
			r.License = "CC-BY-3.0"
		}
		results = append(results, r)
	}
	return results, nil
}

// detailsContext gives videos.list half of the time left on ctx so a slow
// details call cannot starve the hits search.list already returned.
func detailsContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Until(deadline)/2)
}

// details fetches contentDetails for the given video ids, keyed by id.
func (b *YouTube) details(ctx context.Context, base string, ids []string) (map[string]youtubeVideo, error) {
	params := url.Values{
		"part": {"contentDetails,snippet,status"},
		"id":   {strings.Join(ids, ",")},
		"key":  {b.APIKey},
	}
	var vr youtubeVideosResponse
	err := httputil.GetJSON(ctx, b.client(), httputil.Request{
		Provider:  "YouTube",
		URL:       base + "/videos?" + params.Encode(),
		UserAgent: b.UserAgent,
	}, &vr)
	if err != nil {
		return nil, fmt.Errorf("fetching video details: %w", err)
	}
	out := make(map[string]youtubeVideo, len(vr.Items))
	for _, v := range vr.Items {
		out[v.ID] = v
	}
	return out, nil
}

// YouTube Data API JSON structures.
type youtubeSearchResponse struct {
	Items []youtubeSearchItem `json:"items"`
}

type youtubeSearchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet youtubeSnippet `json:"snippet"`
}

type youtubeSnippet struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ChannelTitle string   `json:"channelTitle"`
	PublishedAt  string   `json:"publishedAt"`
	Tags         []string `json:"tags"`
}

type youtubeVideosResponse struct {
	Items []youtubeVideo `json:"items"`
}

type youtubeVideo struct {
	ID             string         `json:"id"`
	Snippet        youtubeSnippet `json:"snippet"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	Status struct {
		License string `json:"license"`
	} `json:"status"`
}
