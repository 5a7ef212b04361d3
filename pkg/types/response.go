// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"encoding/json"
	"time"
)

// AdapterStatus is the terminal state of one provider call.
type AdapterStatus string

const (
	StatusOK      AdapterStatus = "ok"
	StatusEmpty   AdapterStatus = "empty"
	StatusError   AdapterStatus = "error"
	StatusTimeout AdapterStatus = "timeout"
)

// AdapterOutcome is the result of invoking one provider for one request.
// It is created per request and never persisted.
type AdapterOutcome struct {
	Source      string
	Status      AdapterStatus
	Results     []NormalizedResult
	ElapsedMs   int64
	ErrorDetail string
}

// Coverage maps each consulted provider to the number of results it
// returned. Providers that failed or returned nothing map to 0.
type Coverage map[string]int

// ProviderReport describes how one provider fared for a request.
type ProviderReport struct {
	Source    string        `json:"source" yaml:"source"`
	Status    AdapterStatus `json:"status" yaml:"status"`
	Count     int           `json:"count" yaml:"count"`
	ElapsedMs int64         `json:"elapsed_ms" yaml:"elapsed_ms"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report converts an outcome into its wire summary.
func (o AdapterOutcome) Report() ProviderReport {
	return ProviderReport{
		Source:    o.Source,
		Status:    o.Status,
		Count:     len(o.Results),
		ElapsedMs: o.ElapsedMs,
		Error:     o.ErrorDetail,
	}
}

// RankedResult is a merged result with a globally comparable score.
type RankedResult struct {
	NormalizedResult

	// Score is computed by the ranker; it is comparable across providers.
	Score float64

	// MergedFrom is the sorted set of sources that returned this resource.
	MergedFrom []string
}

// rankedJSON is the wire form of a RankedResult.
type rankedJSON struct {
	ID          string       `json:"id"`
	Source      string       `json:"source"`
	Type        ResourceType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Authors     []string     `json:"authors"`
	Year        *int         `json:"year"`
	License     string       `json:"license,omitempty"`
	URL         string       `json:"url"`
	Tags        []string     `json:"tags"`
	Score       float64      `json:"score"`
	Meta        TypeMeta     `json:"meta,omitempty"`
	MergedFrom  []string     `json:"merged_from"`
}

func (r RankedResult) wire() rankedJSON {
	authors := r.Authors
	if authors == nil {
		authors = []string{}
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return rankedJSON{
		ID:          r.ID,
		Source:      r.Source,
		Type:        r.Type,
		Title:       r.Title,
		Description: r.Description,
		Authors:     authors,
		Year:        r.Year,
		License:     r.License,
		URL:         r.URL,
		Tags:        tags,
		Score:       r.Score,
		Meta:        r.Meta,
		MergedFrom:  r.MergedFrom,
	}
}

// MarshalJSON flattens the result into the shape the UI consumes.
func (r RankedResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// SavePayload is what the UI hands to the workspace "save resource" sink.
type SavePayload struct {
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Type        ResourceType `json:"type"`
	Tags        []string     `json:"tags"`
	Description string       `json:"description"`
	Authors     []string     `json:"authors"`
	Year        *int         `json:"year"`
	Source      string       `json:"source"`
}

// SavePayload builds the sink payload for r.
func (r RankedResult) SavePayload() SavePayload {
	return SavePayload{
		Title:       r.Title,
		URL:         r.URL,
		Type:        r.Type,
		Tags:        r.Tags,
		Description: r.Description,
		Authors:     r.Authors,
		Year:        r.Year,
		Source:      r.Source,
	}
}

// SearchResponse is the page of ranked results returned for a query.
type SearchResponse struct {
	Results   []RankedResult   `json:"results" yaml:"results"`
	Total     int              `json:"total" yaml:"total"`
	Page      int              `json:"page" yaml:"page"`
	PageSize  int              `json:"pageSize" yaml:"page_size"`
	HasMore   bool             `json:"hasMore" yaml:"has_more"`
	Coverage  Coverage         `json:"coverage" yaml:"coverage"`
	Providers []ProviderReport `json:"providers" yaml:"providers"`
	Elapsed   time.Duration    `json:"-" yaml:"-"`
}
