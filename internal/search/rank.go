// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"cmp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/pdiddy/openresources/pkg/types"
)

// Score weights. The secondary weights sum to less than one query term's
// share of the overlap weight (0.95/16), so a result matching more terms
// always outranks one matching fewer.
const (
	weightOverlap       = 0.95
	weightTitleCoverage = 0.025
	weightAgreement     = 0.02
	weightRecency       = 0.005

	// maxQueryTerms bounds how many distinct query terms are scored.
	maxQueryTerms = 16

	// maxAgreement is the number of extra sources after which agreement
	// stops adding to the score.
	maxAgreement = 3

	// DefaultRecencyWindowYears is how far back the recency term reaches.
	DefaultRecencyWindowYears = 5
)

// Ranker merges duplicates across providers and orders the merged set.
// The zero value is ready to use.
type Ranker struct {
	// RecencyWindowYears is the age at which the recency term reaches zero.
	// Zero selects DefaultRecencyWindowYears.
	RecencyWindowYears int

	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// Rank is Ranker{}.Rank.
func Rank(q types.Query, outcomes []types.AdapterOutcome) []types.RankedResult {
	return Ranker{}.Rank(q, outcomes)
}

// Rank collapses results that describe the same resource, scores each
// merged result against q and returns them in descending score order. The
// output depends only on the set of input results, never on the order in
// which providers answered.
func (rk Ranker) Rank(q types.Query, outcomes []types.AdapterOutcome) []types.RankedResult {
	var all []types.NormalizedResult
	for _, o := range outcomes {
		for _, r := range o.Results {
			if q.Type.Matches(r.Type) {
				all = append(all, r)
			}
		}
	}
	if len(all) == 0 {
		return []types.RankedResult{}
	}

	slices.SortStableFunc(all, compareCanonical)

	terms := queryTerms(q.Text)
	nowYear := rk.now().Year()
	window := rk.RecencyWindowYears
	if window <= 0 {
		window = DefaultRecencyWindowYears
	}

	clusters := cluster(all)
	ranked := make([]types.RankedResult, 0, len(clusters))
	for _, members := range clusters {
		r := merge(members)
		r.Score = score(r, terms, nowYear, window)
		ranked = append(ranked, r)
	}
	slices.SortFunc(ranked, compareRanked)
	return ranked
}

func (rk Ranker) now() time.Time {
	if rk.Now != nil {
		return rk.Now()
	}
	return time.Now()
}

// compareCanonical is the collection-independent order of raw results.
func compareCanonical(a, b types.NormalizedResult) int {
	return cmp.Or(
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.ID, b.ID),
		cmp.Compare(a.URL, b.URL),
		cmp.Compare(a.Title, b.Title),
		cmp.Compare(a.Type, b.Type),
		cmp.Compare(a.Description, b.Description),
	)
}

// compareRanked orders by score desc, year desc (unknown last), then title,
// URL, ID, source and type ascending.
func compareRanked(a, b types.RankedResult) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	switch {
	case a.Year != nil && b.Year == nil:
		return -1
	case a.Year == nil && b.Year != nil:
		return 1
	case a.Year != nil && b.Year != nil:
		if c := cmp.Compare(*b.Year, *a.Year); c != 0 {
			return c
		}
	}
	return cmp.Or(
		cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)),
		cmp.Compare(a.Title, b.Title),
		cmp.Compare(a.URL, b.URL),
		cmp.Compare(a.ID, b.ID),
		cmp.Compare(a.Source, b.Source),
		cmp.Compare(a.Type, b.Type),
	)
}

// cluster groups canonically ordered results that share a normalized URL
// or a (type, normalized title) key. Matches are transitive. Each cluster
// lists its members in canonical order; clusters are ordered by their
// first member.
func cluster(results []types.NormalizedResult) [][]types.NormalizedResult {
	parent := make([]int, len(results))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		switch {
		case ra < rb:
			parent[rb] = ra
		case rb < ra:
			parent[ra] = rb
		}
	}

	owner := make(map[string]int)
	for i, r := range results {
		for _, key := range dedupKeys(r) {
			if j, ok := owner[key]; ok {
				union(i, j)
				continue
			}
			owner[key] = i
		}
	}

	index := make(map[int]int)
	var out [][]types.NormalizedResult
	for i, r := range results {
		root := find(i)
		ci, ok := index[root]
		if !ok {
			ci = len(out)
			index[root] = ci
			out = append(out, nil)
		}
		out[ci] = append(out[ci], r)
	}
	return out
}

func dedupKeys(r types.NormalizedResult) []string {
	var keys []string
	if u := normalizeURL(r.URL); u != "" {
		keys = append(keys, "url:"+u)
	}
	if t := normalizeTitle(r.Title); t != "" {
		keys = append(keys, "title:"+string(r.Type)+":"+t)
	}
	return keys
}

// normalizeURL lower-cases a URL and drops its scheme, fragment and
// trailing slashes.
func normalizeURL(u string) string {
	u = strings.ToLower(strings.TrimSpace(u))
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	return strings.TrimRight(u, "/")
}

// normalizeTitle returns a lowercased, punctuation-stripped version of the title.
func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// merge folds a cluster into one result. The first member is the base;
// the others fill its gaps.
func merge(members []types.NormalizedResult) types.RankedResult {
	base := members[0]
	base.Authors = slices.Clone(base.Authors)
	tags := slices.Clone(base.Tags)
	sources := []string{base.Source}

	for _, m := range members[1:] {
		if base.License == "" {
			base.License = m.License
		}
		if base.Year == nil && m.Year != nil {
			y := *m.Year
			base.Year = &y
		}
		if base.Meta == nil && m.Meta != nil && m.Meta.ResourceType() == base.Type {
			base.Meta = m.Meta
		}
		if len(m.Description) > len(base.Description) {
			base.Description = m.Description
		}
		if len(m.Authors) > len(base.Authors) {
			base.Authors = slices.Clone(m.Authors)
		}
		if base.URL == "" {
			base.URL = m.URL
		}
		tags = append(tags, m.Tags...)
		sources = append(sources, m.Source)
	}

	slices.Sort(sources)
	base.Tags = types.TagSet(tags)
	return types.RankedResult{
		NormalizedResult: base,
		MergedFrom:       slices.Compact(sources),
	}
}

// queryTerms splits text into at most maxQueryTerms distinct lower-case
// terms in first-seen order.
func queryTerms(text string) []string {
	var terms []string
	seen := make(map[string]struct{})
	for _, t := range tokenize(text) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
		if len(terms) == maxQueryTerms {
			break
		}
	}
	return terms
}

// tokenize splits s on anything that is not a letter or digit.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(parts ...string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range parts {
		for _, t := range tokenize(p) {
			set[t] = struct{}{}
		}
	}
	return set
}

// score computes the global relevance of r for terms. RawScore does not
// contribute.
func score(r types.RankedResult, terms []string, nowYear, window int) float64 {
	var overlap, titleCoverage float64
	if len(terms) > 0 {
		text := append([]string{r.Title, r.Description}, r.Tags...)
		text = append(text, r.Authors...)
		all := tokenSet(text...)
		title := tokenSet(r.Title)

		var inAll, inTitle int
		for _, t := range terms {
			if _, ok := all[t]; ok {
				inAll++
			}
			if _, ok := title[t]; ok {
				inTitle++
			}
		}
		overlap = float64(inAll) / float64(len(terms))
		titleCoverage = float64(inTitle) / float64(len(terms))
	}

	agreement := float64(min(len(r.MergedFrom)-1, maxAgreement)) / maxAgreement

	var recency float64
	if r.Year != nil {
		age := max(nowYear-*r.Year, 0)
		if age < window {
			recency = 1 - float64(age)/float64(window)
		}
	}

	return weightOverlap*overlap +
		weightTitleCoverage*titleCoverage +
		weightAgreement*agreement +
		weightRecency*recency
}
