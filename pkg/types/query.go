// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultPageSize is used when the caller does not ask for a page size.
	DefaultPageSize = 30

	// MaxPageSize bounds the page size regardless of what the caller asks for.
	MaxPageSize = 100

	// MaxQueryLength bounds the query text in runes.
	MaxQueryLength = 512
)

// ErrInvalidQuery is the parent of every caller error. Handlers map it to 400.
var ErrInvalidQuery = errors.New("invalid query")

var (
	ErrEmptyQuery      = fmt.Errorf("%w: query text is empty", ErrInvalidQuery)
	ErrQueryTooLong    = fmt.Errorf("%w: query text exceeds %d characters", ErrInvalidQuery, MaxQueryLength)
	ErrInvalidType     = fmt.Errorf("%w: unknown type", ErrInvalidQuery)
	ErrInvalidPage     = fmt.Errorf("%w: page must be a positive integer", ErrInvalidQuery)
	ErrInvalidPageSize = fmt.Errorf("%w: page size must be a positive integer", ErrInvalidQuery)
)

// TypeFilter selects which resource types a query asks for. The zero value
// is invalid; use FilterAll.
type TypeFilter string

// FilterAll matches every resource type.
const FilterAll TypeFilter = "all"

// ParseTypeFilter accepts "all" (or the empty string) and any ResourceType.
func ParseTypeFilter(s string) (TypeFilter, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(FilterAll) {
		return FilterAll, nil
	}
	if !ResourceType(s).Valid() {
		return "", fmt.Errorf("%w %q (want %s)", ErrInvalidType, s, FilterChoices())
	}
	return TypeFilter(s), nil
}

// FilterChoices lists the accepted type filters as "all|paper|...".
func FilterChoices() string {
	names := make([]string, 0, len(AllResourceTypes)+1)
	names = append(names, string(FilterAll))
	for _, t := range AllResourceTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, "|")
}

// Matches reports whether t passes the filter.
func (f TypeFilter) Matches(t ResourceType) bool {
	return f == FilterAll || ResourceType(f) == t
}

// Query is one validated search request. Build it with NewQuery.
type Query struct {
	Text     string
	Type     TypeFilter
	Page     int
	PageSize int
}

// NewQuery validates and normalizes raw request parameters. Zero page and
// page size select the defaults; page sizes above MaxPageSize are clamped.
func NewQuery(text, typeFilter string, page, pageSize int) (Query, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return Query{}, ErrEmptyQuery
	}
	if utf8.RuneCountInString(text) > MaxQueryLength {
		return Query{}, ErrQueryTooLong
	}

	filter, err := ParseTypeFilter(typeFilter)
	if err != nil {
		return Query{}, err
	}

	switch {
	case page < 0:
		return Query{}, ErrInvalidPage
	case page == 0:
		page = 1
	}

	switch {
	case pageSize < 0:
		return Query{}, ErrInvalidPageSize
	case pageSize == 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}

	return Query{Text: text, Type: filter, Page: page, PageSize: pageSize}, nil
}
