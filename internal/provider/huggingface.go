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

// huggingFaceAPIBase is the Hugging Face Hub API root. Declared as a var so
// tests can substitute an httptest server.
var huggingFaceAPIBase = "https://huggingface.co/api"

const huggingFaceSite = "https://huggingface.co"

// HuggingFace queries the Hugging Face Hub for models.
type HuggingFace struct {
	Options
}

// Name returns the backend identifier.
func (b *HuggingFace) Name() string { return "huggingface" }

// Types returns the resource types the model hub produces.
func (b *HuggingFace) Types() []types.ResourceType { return []types.ResourceType{types.TypeModel} }

// Search queries the model hub and maps models to results.
func (b *HuggingFace) Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error) {
	var items []huggingFaceItem
	if err := b.list(ctx, "models", q.Text, limit, &items); err != nil {
		return nil, err
	}

	total := len(items)
	results := make([]types.NormalizedResult, 0, total)
	for i, m := range items {
		r := m.result(types.TypeModel, huggingFaceSite+"/"+m.ID)
		r.RawScore = positionScore(i, total)
		if m.PipelineTag != "" {
			r.Meta = types.ModelMeta{Pipeline: m.PipelineTag}
		}
		results = append(results, r)
	}
	return results, nil
}

// HuggingFaceDatasets queries the Hugging Face Hub for datasets.
type HuggingFaceDatasets struct {
	Options
}

// Name returns the backend identifier.
func (b *HuggingFaceDatasets) Name() string { return "huggingface_datasets" }

// Types returns the resource types the dataset hub produces.
func (b *HuggingFaceDatasets) Types() []types.ResourceType {
	return []types.ResourceType{types.TypeDataset}
}

// Search queries the dataset hub and maps datasets to results.
func (b *HuggingFaceDatasets) Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error) {
	hub := HuggingFace(*b)
	var items []huggingFaceItem
	if err := hub.list(ctx, "datasets", q.Text, limit, &items); err != nil {
		return nil, err
	}

	total := len(items)
	results := make([]types.NormalizedResult, 0, total)
	for i, d := range items {
		r := d.result(types.TypeDataset, huggingFaceSite+"/datasets/"+d.ID)
		r.RawScore = positionScore(i, total)
		results = append(results, r)
	}
	return results, nil
}

// list runs one hub listing query ("models" or "datasets").
func (b *HuggingFace) list(ctx context.Context, kind, text string, limit int, dst any) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty Hugging Face query")
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{
		"search": {text},
		"limit":  {strconv.Itoa(limit)},
		"sort":   {"downloads"},
		"full":   {"true"},
	}
	req := httputil.Request{
		Provider:  "Hugging Face",
		URL:       b.base(huggingFaceAPIBase) + "/" + kind + "?" + params.Encode(),
		UserAgent: b.UserAgent,
	}
	if b.APIKey != "" {
		req.Header = http.Header{"Authorization": {"Bearer " + b.APIKey}}
	}
	return httputil.GetJSON(ctx, b.client(), req, dst)
}

// huggingFaceItem is the listing shape shared by models and datasets.
type huggingFaceItem struct {
	ID          string   `json:"id"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	PipelineTag string   `json:"pipeline_tag"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"createdAt"`
	Downloads   int      `json:"downloads"`
	Likes       int      `json:"likes"`
}

func (it huggingFaceItem) result(t types.ResourceType, landing string) types.NormalizedResult {
	license, tags := splitHubTags(it.Tags)
	r := types.NormalizedResult{
		ID:          it.ID,
		Type:        t,
		Title:       it.ID,
		Description: it.Description,
		URL:         landing,
		License:     license,
		Tags:        tags,
		Year:        yearOf(it.CreatedAt),
	}
	author := it.Author
	if author == "" {
		if owner, _, ok := strings.Cut(it.ID, "/"); ok {
			author = owner
		}
	}
	if author != "" {
		r.Authors = []string{author}
	}
	return r
}

// splitHubTags pulls the license out of the hub's "license:<id>" tag and
// drops the other namespaced tags (arxiv:, region:, dataset:...).
func splitHubTags(tags []string) (license string, plain []string) {
	for _, t := range tags {
		key, val, ok := strings.Cut(t, ":")
		switch {
		case !ok:
			plain = append(plain, t)
		case key == "license" && license == "":
			license = val
		}
	}
	return license, plain
}
