package health

import "context"

// CachePinger checks response cache availability.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports how many search sessions are open.
type SessionCounter interface {
	Len() int
}
