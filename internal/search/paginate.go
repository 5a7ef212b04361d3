// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import "github.com/pdiddy/openresources/pkg/types"

// Paginate returns the 1-based page of items. pageSize is clamped to
// [1, types.MaxPageSize] and page below 1 is treated as 1. A page past the
// end yields an empty, non-nil slice.
func Paginate[T any](items []T, page, pageSize int) (slice []T, total int, hasMore bool) {
	pageSize = min(max(pageSize, 1), types.MaxPageSize)
	page = max(page, 1)

	total = len(items)
	if page-1 > total/pageSize {
		return []T{}, total, false
	}
	start := (page - 1) * pageSize
	if start >= total {
		return []T{}, total, false
	}
	end := min(total, start+pageSize)
	return items[start:end], total, end < total
}
