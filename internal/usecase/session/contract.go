package session

import "github.com/kailas-cloud/entrysearch/internal/domain/query"

// Dispatcher schedules derived queries for delivery to the content source.
type Dispatcher interface {
	Schedule(q query.Query)
	Drain()
	Close()
}
