// Package session holds the search state of one presentation session.
package session

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
	"github.com/kailas-cloud/entrysearch/internal/domain/filter"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
	"github.com/kailas-cloud/entrysearch/internal/usecase/dispatch"
)

// Config holds the values fixed for the lifetime of a session.
type Config struct {
	Blocks   []filter.Block
	Locale   string
	PageSize int
}

// Snapshot is a copy of the session state. Entries are deep copies: callers may
// modify them without affecting the store.
type Snapshot struct {
	Search      string
	Locale      string
	PageSize    int
	CurrentPage int
	TotalPages  int
	TotalCount  int
	IsLoading   bool
	Entries     []entry.Record
	Filters     filter.Map
	Err         error
}

// IsEmpty reports the "no matches" state: nothing loaded and nothing pending.
func (s Snapshot) IsEmpty() bool {
	return len(s.Entries) == 0 && !s.IsLoading
}

// Store owns the search state of one session and forwards every derived query to its dispatcher.
type Store struct {
	composer *filter.Composer
	locale   string

	// order serializes mutations so queries reach the dispatcher in state order.
	order sync.Mutex

	mu          sync.RWMutex
	search      string
	dynamic     filter.Map
	pageSize    int
	currentPage int
	totalCount  int
	loading     bool
	entries     []entry.Record
	lastErr     error
	closed      bool

	dispatcher Dispatcher
}

// Open creates a session backed by a debounced dispatcher and schedules the initial query.
func Open(ctx context.Context, cfg Config, fetcher dispatch.Fetcher, dcfg dispatch.Config) (*Store, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	s.dispatcher = dispatch.New(ctx, fetcher, s, dcfg)
	if _, err := s.Refresh(); err != nil {
		s.dispatcher.Close()
		return nil, err
	}
	return s, nil
}

func newStore(cfg Config) (*Store, error) {
	pageSize := cfg.PageSize
	if pageSize == 0 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize < 0 {
		return nil, fmt.Errorf("open session: %w: %d", domain.ErrInvalidPageSize, pageSize)
	}
	locale := cfg.Locale
	if locale == "" {
		locale = domain.DefaultLocale
	}
	return &Store{
		composer: filter.NewComposer(cfg.Blocks),
		locale:   locale,
		pageSize: pageSize,
	}, nil
}

// SetSearch replaces the search text. Identical text does not dispatch.
func (s *Store) SetSearch(text string) (query.Query, error) {
	return s.mutate("set search", func() bool {
		changed := s.search != text
		s.search = text
		return changed
	})
}

// SetAdditionalFilters replaces the dynamic filters. Every call dispatches.
func (s *Store) SetAdditionalFilters(filters filter.Map) (query.Query, error) {
	return s.mutate("set filters", func() bool {
		s.dynamic = maps.Clone(filters)
		return true
	})
}

// SetCurrentPage moves to a zero-based page.
func (s *Store) SetCurrentPage(page int) (query.Query, error) {
	if page < 0 {
		return query.Query{}, fmt.Errorf("set page: %w: %d", domain.ErrInvalidPage, page)
	}
	return s.mutate("set page", func() bool {
		changed := s.currentPage != page
		s.currentPage = page
		return changed
	})
}

// SetPageSize changes the page size and resets the current page to 0.
func (s *Store) SetPageSize(size int) (query.Query, error) {
	if size <= 0 {
		return query.Query{}, fmt.Errorf("set page size: %w: %d", domain.ErrInvalidPageSize, size)
	}
	return s.mutate("set page size", func() bool {
		if s.pageSize == size {
			return false
		}
		s.pageSize = size
		s.currentPage = 0
		return true
	})
}

// Refresh dispatches the current query unconditionally.
func (s *Store) Refresh() (query.Query, error) {
	return s.mutate("refresh", func() bool { return true })
}

// Query returns the query derived from the current state without dispatching it.
func (s *Store) Query() (query.Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked()
}

// Snapshot copies the current state. TotalPages is derived on every call.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Search:      s.search,
		Locale:      s.locale,
		PageSize:    s.pageSize,
		CurrentPage: s.currentPage,
		TotalPages:  query.TotalPages(s.totalCount, s.pageSize),
		TotalCount:  s.totalCount,
		IsLoading:   s.loading,
		Entries:     entry.CloneAll(s.entries),
		Filters:     s.composer.Compose(s.dynamic),
		Err:         s.lastErr,
	}
}

// Blocks returns the static filter blocks of the session.
func (s *Store) Blocks() []filter.Block {
	return s.composer.Blocks()
}

// Drain blocks until every dispatched content source call has completed.
// Queries still waiting for their debounce window are not affected.
func (s *Store) Drain() {
	s.dispatcher.Drain()
}

// Close stops the dispatcher. Further mutations fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.loading = false
	s.mu.Unlock()

	s.dispatcher.Close()
}

// SetLoading implements dispatch.Sink.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.loading = loading
}

// Apply implements dispatch.Sink. Entries are replaced wholesale.
func (s *Store) Apply(entries []entry.Record, totalCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.totalCount = totalCount
	s.lastErr = nil
}

// Fail implements dispatch.Sink. Loaded entries are kept.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
}

// mutate applies change under the lock and dispatches the derived query when change reports true.
// The dispatcher is called after the lock is released: it reports back through the Sink methods.
func (s *Store) mutate(op string, change func() bool) (query.Query, error) {
	s.order.Lock()
	defer s.order.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return query.Query{}, fmt.Errorf("%s: %w", op, domain.ErrClosed)
	}
	changed := change()
	q, err := s.queryLocked()
	s.mu.Unlock()

	if err != nil {
		return query.Query{}, fmt.Errorf("%s: %w", op, err)
	}
	if changed {
		s.dispatcher.Schedule(q)
	}
	return q, nil
}

func (s *Store) queryLocked() (query.Query, error) {
	return query.New(query.Params{
		Filters:     s.composer.Compose(s.dynamic),
		Locale:      s.locale,
		Search:      s.search,
		PageSize:    s.pageSize,
		CurrentPage: s.currentPage,
	})
}
