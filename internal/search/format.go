// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/openresources/pkg/types"
)

// FormatTable writes a search response as a human-readable table to w.
func FormatTable(resp *types.SearchResponse, w io.Writer) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found.")
	} else {
		fmt.Fprintf(w, "%-4s  %-8s  %-56s  %-20s  %-4s  %-6s  %s\n",
			"Rank", "Type", "Title", "Authors", "Year", "Score", "Sources")
		fmt.Fprintln(w, strings.Repeat("-", 120))

		offset := (resp.Page - 1) * resp.PageSize
		for i, r := range resp.Results {
			year := ""
			if r.Year != nil {
				year = fmt.Sprintf("%d", *r.Year)
			}
			fmt.Fprintf(w, "%-4d  %-8s  %-56s  %-20s  %-4s  %-6.3f  %s\n",
				offset+i+1, r.Type, truncate(r.Title, 56), formatAuthors(r.Authors),
				year, r.Score, strings.Join(r.MergedFrom, ","))
		}
	}

	fmt.Fprintf(w, "\n%d results (page %d", resp.Total, resp.Page)
	if resp.HasMore {
		fmt.Fprint(w, ", more available")
	}
	fmt.Fprintln(w, ")")
	for _, p := range resp.Providers {
		line := fmt.Sprintf("  %-22s %-8s %3d  %5dms", p.Source, p.Status, p.Count, p.ElapsedMs)
		if p.Error != "" {
			line += "  " + truncate(p.Error, 60)
		}
		fmt.Fprintln(w, line)
	}
}

// FormatJSON writes the response as indented JSON to w.
func FormatJSON(resp *types.SearchResponse, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func formatAuthors(authors []string) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0], 20)
	default:
		return truncate(authors[0], 14) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
