// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures of the openresources
// aggregator: queries, normalized provider results, adapter outcomes, ranked
// results, and the search response served to the UI.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// ResourceType is the closed set of resource kinds a provider can return.
type ResourceType string

const (
	TypePaper    ResourceType = "paper"
	TypeDataset  ResourceType = "dataset"
	TypeCode     ResourceType = "code"
	TypeModel    ResourceType = "model"
	TypeHardware ResourceType = "hardware"
	TypeVideo    ResourceType = "video"
)

// AllResourceTypes lists every ResourceType in display order.
var AllResourceTypes = []ResourceType{
	TypePaper, TypeDataset, TypeCode, TypeModel, TypeHardware, TypeVideo,
}

// Valid reports whether t is one of the known resource types.
func (t ResourceType) Valid() bool {
	return slices.Contains(AllResourceTypes, t)
}

// ParseResourceType converts a string into a ResourceType.
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown resource type %q", s)
	}
	return t, nil
}

// TypeMeta is the type-specific payload of a result. It is a sealed union:
// only the variants declared in this package implement it, and each variant
// belongs to exactly one ResourceType.
type TypeMeta interface {
	ResourceType() ResourceType
	sealed()
}

// ModelMeta carries model-hub specific fields.
type ModelMeta struct {
	Pipeline string `json:"pipeline,omitempty" yaml:"pipeline,omitempty"`
}

// HardwareMeta carries the certification identifier of a hardware project.
type HardwareMeta struct {
	CertID string `json:"cert_id,omitempty" yaml:"cert_id,omitempty"`
}

// VideoMeta carries video platform fields. Duration is the ISO 8601
// duration reported by the platform (e.g. "PT4M13S").
type VideoMeta struct {
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Channel  string `json:"channel,omitempty" yaml:"channel,omitempty"`
}

func (ModelMeta) ResourceType() ResourceType { return TypeModel }
func (HardwareMeta) ResourceType() ResourceType { return TypeHardware }
func (VideoMeta) ResourceType() ResourceType { return TypeVideo }

func (ModelMeta) sealed() {}
func (HardwareMeta) sealed() {}
func (VideoMeta) sealed() {}

var errInvalidResult = errors.New("invalid result")

// NormalizedResult is the canonical shape every provider backend produces.
type NormalizedResult struct {
	// ID is unique within Source only; collisions across sources are
	// resolved by merging.
	ID string

	// Source is the backend name that produced the result (e.g. "arxiv").
	Source string

	Type        ResourceType
	Title       string
	Description string

	// Authors lists authors, owners, or channel names in provider order.
	Authors []string

	// Year is the publication or creation year when known.
	Year *int

	License string

	// URL is the landing page. It is the primary dedup key.
	URL string

	// Tags is a set; Normalize sorts and de-duplicates it.
	Tags []string

	// Meta is nil for paper, dataset and code results.
	Meta TypeMeta

	// RawScore is the provider-native relevance signal. It is not comparable
	// across providers and never decides cross-provider order.
	RawScore *float64
}

// Validate checks the structural invariants of a result.
func (r NormalizedResult) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", errInvalidResult, r.Type)
	}
	if r.Source == "" {
		return fmt.Errorf("%w: missing source", errInvalidResult)
	}
	if r.ID == "" && r.URL == "" {
		return fmt.Errorf("%w: neither id nor url set", errInvalidResult)
	}
	if r.Meta != nil && r.Meta.ResourceType() != r.Type {
		return fmt.Errorf("%w: %s meta on %s result", errInvalidResult, r.Meta.ResourceType(), r.Type)
	}
	return nil
}

// EnsureID fills an empty ID with a deterministic hash of title and source.
func (r *NormalizedResult) EnsureID() {
	if r.ID != "" {
		return
	}
	sum := sha256.Sum256([]byte(r.Source + "\x00" + strings.ToLower(strings.TrimSpace(r.Title))))
	r.ID = "h-" + hex.EncodeToString(sum[:8])
}

// Normalize trims text fields and turns Tags into a sorted set.
func (r *NormalizedResult) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.URL = strings.TrimSpace(r.URL)
	r.License = strings.TrimSpace(r.License)
	r.Tags = TagSet(r.Tags)
}

// TagSet lower-cases, de-duplicates and sorts tags, dropping empty ones.
func TagSet(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 { return &v }
