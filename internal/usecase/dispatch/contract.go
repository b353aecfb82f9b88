package dispatch

import (
	"context"

	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
)

// Fetcher sends a query to the content source.
type Fetcher interface {
	Fetch(ctx context.Context, q query.Query) (entry.Page, error)
}

// Sink receives the outcome of dispatched queries.
// Calls are serialized by the dispatcher.
type Sink interface {
	SetLoading(loading bool)
	Apply(entries []entry.Record, totalCount int)
	Fail(err error)
}
