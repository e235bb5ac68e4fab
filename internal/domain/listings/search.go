package listings

import (
	"sort"
	"strings"
)

const (
	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Query   string
	MinBeds int
	Limit   int
	Offset  int
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Query = strings.TrimSpace(strings.ToLower(normalized.Query))
	if normalized.MinBeds < 0 {
		normalized.MinBeds = 0
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	return normalized
}

// Matches applies the filters of normalized params to a single listing.
// The query matches a case-insensitive substring of the location or title.
func (p SearchParams) Matches(l *Listing) bool {
	if p.MinBeds > 0 && l.Beds < p.MinBeds {
		return false
	}
	if p.Query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(l.Location), p.Query) ||
		strings.Contains(strings.ToLower(l.Title), p.Query)
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Listing
	Total int
}

// SortNewestFirst orders listings by creation time descending, ties broken by id.
func SortNewestFirst(items []*Listing) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// Page cuts the window described by normalized params out of sorted matches.
func (p SearchParams) Page(matches []*Listing) SearchResult {
	result := SearchResult{Total: len(matches)}
	if p.Offset >= len(matches) {
		result.Items = []*Listing{}
		return result
	}
	end := p.Offset + p.Limit
	if end > len(matches) {
		end = len(matches)
	}
	result.Items = matches[p.Offset:end]
	return result
}
