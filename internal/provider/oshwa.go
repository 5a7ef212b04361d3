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

// oshwaAPIBase is the OSHWA certification projects endpoint. Declared as a
// var so tests can substitute an httptest server.
var oshwaAPIBase = "https://certificationapi.oshwa.org/api/projects"

const oshwaSite = "https://certification.oshwa.org"

// OSHWA queries the Open Source Hardware Association certification
// registry. The API requires a bearer token.
type OSHWA struct {
	Options
}

// Name returns the backend identifier.
func (b *OSHWA) Name() string { return "oshwa" }

// Types returns the resource types OSHWA produces.
func (b *OSHWA) Types() []types.ResourceType { return []types.ResourceType{types.TypeHardware} }

// Search queries the certification registry and maps projects to
// hardware results.
func (b *OSHWA) Search(ctx context.Context, q types.Query, limit int) ([]types.NormalizedResult, error) {
	if b.APIKey == "" {
		return nil, fmt.Errorf("OSHWA: %w", ErrMissingCredential)
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("empty OSHWA query")
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{
		"q":      {q.Text},
		"limit":  {strconv.Itoa(limit)},
		"offset": {"0"},
	}
	var pr oshwaResponse
	err := httputil.GetJSON(ctx, b.client(), httputil.Request{
		Provider:  "OSHWA",
		URL:       b.base(oshwaAPIBase) + "?" + params.Encode(),
		UserAgent: b.UserAgent,
		Header:    http.Header{"Authorization": {"Bearer " + b.APIKey}},
	}, &pr)
	if err != nil {
		return nil, err
	}

	total := len(pr.Items)
	results := make([]types.NormalizedResult, 0, total)
	for i, p := range pr.Items {
		r := types.NormalizedResult{
			ID:          p.OshwaUID,
			Type:        types.TypeHardware,
			Title:       p.ProjectName,
			Description: p.ProjectDescription,
			License:     p.HardwareLicense,
			Year:        yearOf(p.CertificationDate),
			RawScore:    positionScore(i, total),
		}
		if p.ResponsibleParty != "" {
			r.Authors = []string{p.ResponsibleParty}
		}
		if p.PrimaryType != "" {
			r.Tags = append(r.Tags, p.PrimaryType)
		}
		r.Tags = append(r.Tags, p.AdditionalType...)
		if p.OshwaUID != "" {
			r.Meta = types.HardwareMeta{CertID: p.OshwaUID}
			r.URL = oshwaSite + "/" + strings.ToLower(p.OshwaUID) + ".html"
		} else {
			r.URL = p.ProjectWebsite
		}
		results = append(results, r)
	}
	return results, nil
}

// OSHWA API JSON structures.
type oshwaResponse struct {
	Total int            `json:"total"`
	Items []oshwaProject `json:"items"`
}

type oshwaProject struct {
	OshwaUID           string   `json:"oshwaUid"`
	ResponsibleParty   string   `json:"responsibleParty"`
	ProjectName        string   `json:"projectName"`
	ProjectDescription string   `json:"projectDescription"`
	ProjectWebsite     string   `json:"projectWebsite"`
	HardwareLicense    string   `json:"hardwareLicense"`
	PrimaryType        string   `json:"primaryType"`
	AdditionalType     []string `json:"additionalType"`
	CertificationDate  string   `json:"certificationDate"`
}
