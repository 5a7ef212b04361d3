// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/openresources/pkg/types"
)

// QueryFile is the on-disk representation of a search and its results.
// A saved search can be reloaded and printed later without contacting any
// provider.
type QueryFile struct {
	Query   QueryParams   `yaml:"query"`
	Results []ResultEntry `yaml:"results"`
	Summary QuerySummary  `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Text     string `yaml:"text"`
	Type     string `yaml:"type"`
	Page     int    `yaml:"page"`
	PageSize int    `yaml:"page_size"`
}

// ResultEntry is one ranked result. Meta is flattened to a string map so
// the file stays readable without knowing the concrete meta type.
type ResultEntry struct {
	ID          string            `yaml:"id"`
	Source      string            `yaml:"source"`
	Type        string            `yaml:"type"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description,omitempty"`
	Authors     []string          `yaml:"authors,omitempty"`
	Year        *int              `yaml:"year,omitempty"`
	License     string            `yaml:"license,omitempty"`
	URL         string            `yaml:"url"`
	Tags        []string          `yaml:"tags,omitempty"`
	Score       float64           `yaml:"score"`
	MergedFrom  []string          `yaml:"merged_from"`
	Meta        map[string]string `yaml:"meta,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total     int                    `yaml:"total"`
	HasMore   bool                   `yaml:"has_more"`
	Coverage  map[string]int         `yaml:"coverage"`
	Providers []types.ProviderReport `yaml:"providers,omitempty"`
	Timestamp time.Time              `yaml:"timestamp"`
}

// WriteQueryFile saves a query and its response page to a YAML file.
func WriteQueryFile(path string, q types.Query, resp *types.SearchResponse) error {
	qf := QueryFile{
		Query: QueryParams{
			Text:     q.Text,
			Type:     string(q.Type),
			Page:     q.Page,
			PageSize: q.PageSize,
		},
		Results: make([]ResultEntry, 0, len(resp.Results)),
		Summary: QuerySummary{
			Total:     resp.Total,
			HasMore:   resp.HasMore,
			Coverage:  resp.Coverage,
			Providers: resp.Providers,
			Timestamp: time.Now().UTC(),
		},
	}
	for _, r := range resp.Results {
		qf.Results = append(qf.Results, ResultEntry{
			ID:          r.ID,
			Source:      r.Source,
			Type:        string(r.Type),
			Title:       r.Title,
			Description: r.Description,
			Authors:     r.Authors,
			Year:        r.Year,
			License:     r.License,
			URL:         r.URL,
			Tags:        r.Tags,
			Score:       r.Score,
			MergedFrom:  r.MergedFrom,
			Meta:        metaFields(r.Meta),
		})
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Response rebuilds the saved response page.
func (qf *QueryFile) Response() (*types.SearchResponse, error) {
	resp := &types.SearchResponse{
		Results:   make([]types.RankedResult, 0, len(qf.Results)),
		Total:     qf.Summary.Total,
		Page:      qf.Query.Page,
		PageSize:  qf.Query.PageSize,
		HasMore:   qf.Summary.HasMore,
		Coverage:  qf.Summary.Coverage,
		Providers: qf.Summary.Providers,
	}
	for i, e := range qf.Results {
		t, err := types.ParseResourceType(e.Type)
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", i, err)
		}
		resp.Results = append(resp.Results, types.RankedResult{
			NormalizedResult: types.NormalizedResult{
				ID:          e.ID,
				Source:      e.Source,
				Type:        t,
				Title:       e.Title,
				Description: e.Description,
				Authors:     e.Authors,
				Year:        e.Year,
				License:     e.License,
				URL:         e.URL,
				Tags:        e.Tags,
				Meta:        metaFromFields(t, e.Meta),
			},
			Score:      e.Score,
			MergedFrom: e.MergedFrom,
		})
	}
	return resp, nil
}

// ToRawQuery converts stored QueryParams back into request parameters.
func (p QueryParams) ToRawQuery() RawQuery {
	return RawQuery{Text: p.Text, Type: p.Type, Page: p.Page, PageSize: p.PageSize}
}

func metaFields(m types.TypeMeta) map[string]string {
	switch m := m.(type) {
	case types.ModelMeta:
		return map[string]string{"pipeline": m.Pipeline}
	case types.HardwareMeta:
		return map[string]string{"cert_id": m.CertID}
	case types.VideoMeta:
		return map[string]string{"duration": m.Duration, "channel": m.Channel}
	}
	return nil
}

func metaFromFields(t types.ResourceType, f map[string]string) types.TypeMeta {
	if len(f) == 0 {
		return nil
	}
	switch t {
	case types.TypeModel:
		return types.ModelMeta{Pipeline: f["pipeline"]}
	case types.TypeHardware:
		return types.HardwareMeta{CertID: f["cert_id"]}
	case types.TypeVideo:
		return types.VideoMeta{Duration: f["duration"], Channel: f["channel"]}
	}
	return nil
}
