// Package query builds the payload sent to the content source.
package query

import (
	"fmt"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/filter"
)

// Query is the outbound search payload.
type Query struct {
	Filters        filter.Map `json:"filters,omitempty"`
	Locale         string     `json:"locale"`
	WithTotalCount bool       `json:"withTotalCount"`
	Limit          int        `json:"limit"`
	Offset         int        `json:"offset"`
	Search         string     `json:"search,omitempty"`
}

// Params are the session values a query is derived from.
type Params struct {
	Filters     filter.Map
	Locale      string
	Search      string
	PageSize    int
	CurrentPage int
}

// New derives the payload: limit=pageSize, offset=currentPage*pageSize.
// Search is dropped when empty.
func New(p Params) (Query, error) {
	if p.PageSize <= 0 {
		return Query{}, fmt.Errorf("%w: %d", domain.ErrInvalidPageSize, p.PageSize)
	}
	if p.CurrentPage < 0 {
		return Query{}, fmt.Errorf("%w: %d", domain.ErrInvalidPage, p.CurrentPage)
	}
	return Query{
		Filters:        p.Filters,
		Locale:         p.Locale,
		WithTotalCount: true,
		Limit:          p.PageSize,
		Offset:         p.CurrentPage * p.PageSize,
		Search:         p.Search,
	}, nil
}

// TotalPages returns ceil(totalCount / pageSize), or 0 for a non-positive page size.
func TotalPages(totalCount, pageSize int) int {
	if pageSize <= 0 || totalCount <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}
