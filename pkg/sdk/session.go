package entrysearch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/entrysearch/internal/db"
	dbRedis "github.com/kailas-cloud/entrysearch/internal/db/redis"
	"github.com/kailas-cloud/entrysearch/internal/metrics"
	"github.com/kailas-cloud/entrysearch/internal/repository/entrycache"
	"github.com/kailas-cloud/entrysearch/internal/transport/contentsource"
	"github.com/kailas-cloud/entrysearch/internal/usecase/dispatch"
	healthuc "github.com/kailas-cloud/entrysearch/internal/usecase/health"
	sessionuc "github.com/kailas-cloud/entrysearch/internal/usecase/session"
)

const defaultReadinessTimeout = 10 * time.Second

// Session is one search session bound to a content source.
// It is safe for concurrent use.
type Session struct {
	store     *sessionuc.Store
	cache     db.Store
	healthSvc *healthuc.Service
	metrics   *metrics.Search
	obs       *observer
	closeOnce sync.Once
}

// New opens a session and schedules its initial query.
// ctx bounds every content source call of the session; Close cancels them.
func New(ctx context.Context, opts ...Option) (*Session, error) {
	cfg := &sessionConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.endpoint == "" {
		return nil, errors.New("entrysearch: content source endpoint required (use WithEndpoint)")
	}
	if cfg.pageSizeErr != nil {
		return nil, fmt.Errorf("entrysearch: %w", cfg.pageSizeErr)
	}
	if cfg.pageSize < 0 {
		return nil, fmt.Errorf("entrysearch: %w: %d", ErrInvalidPageSize, cfg.pageSize)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}
	var m *metrics.Search
	if cfg.metricsReg != nil {
		if m, err = metrics.NewSearch(cfg.metricsReg); err != nil {
			return nil, fmt.Errorf("entrysearch: %w", err)
		}
	}

	source, err := contentsource.New(&contentsource.Config{
		Endpoint:   cfg.endpoint,
		Headers:    cfg.headers,
		HTTPClient: cfg.httpClient,
		Metrics:    m,
		Logger:     cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("entrysearch: %w", err)
	}

	var fetcher dispatch.Fetcher = source
	var cache db.Store
	if len(cfg.cacheAddrs) > 0 {
		cache, err = openCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		fetcher = entrycache.New(source, cache, cfg.cacheTTL, m, cfg.logger)
	}

	return wireSession(ctx, cfg, fetcher, cache, m, obs)
}

func openCache(ctx context.Context, cfg *sessionConfig) (db.Store, error) {
	s, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.cacheAddrs,
		Password:   cfg.cachePassword,
		ClientName: "entrysearch-sdk",
	})
	if err != nil {
		return nil, fmt.Errorf("entrysearch: create cache store: %w", err)
	}
	if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		s.Close()
		return nil, fmt.Errorf("entrysearch: wait for cache: %w", err)
	}
	return s, nil
}

func wireSession(
	ctx context.Context, cfg *sessionConfig, fetcher dispatch.Fetcher,
	cache db.Store, m *metrics.Search, obs *observer,
) (*Session, error) {
	store, err := sessionuc.Open(ctx, sessionuc.Config{
		Blocks:   cfg.blocks,
		Locale:   cfg.locale,
		PageSize: cfg.pageSize,
	}, fetcher, dispatch.Config{
		Wait:    cfg.wait,
		Clock:   cfg.clock,
		Metrics: m,
		Logger:  cfg.logger,
	})
	if err != nil {
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("entrysearch: %w", err)
	}

	m.SessionOpened()
	return &Session{
		store:     store,
		cache:     cache,
		healthSvc: healthuc.New(cache, nil),
		metrics:   m,
		obs:       obs,
	}, nil
}

// SetSearch replaces the search text and schedules the derived query.
// Setting the current text again schedules nothing.
func (s *Session) SetSearch(text string) (q Query, err error) {
	start := time.Now()
	defer func() { s.obs.observe("set_search", start, q, err) }()
	return s.store.SetSearch(text)
}

// SetAdditionalFilters replaces the dynamic filters and schedules the derived query.
// A dynamic clause replaces the static clause of the same key as a whole.
func (s *Session) SetAdditionalFilters(filters FilterMap) (q Query, err error) {
	start := time.Now()
	defer func() { s.obs.observe("set_filters", start, q, err) }()
	return s.store.SetAdditionalFilters(filters)
}

// SetCurrentPage moves to a zero-based page.
func (s *Session) SetCurrentPage(page int) (q Query, err error) {
	start := time.Now()
	defer func() { s.obs.observe("set_page", start, q, err) }()
	return s.store.SetCurrentPage(page)
}

// SetPageSize changes the page size and returns to the first page.
func (s *Session) SetPageSize(size int) (q Query, err error) {
	start := time.Now()
	defer func() { s.obs.observe("set_page_size", start, q, err) }()
	return s.store.SetPageSize(size)
}

// Refresh schedules the current query again.
func (s *Session) Refresh() (q Query, err error) {
	start := time.Now()
	defer func() { s.obs.observe("refresh", start, q, err) }()
	return s.store.Refresh()
}

// Query returns the query derived from the current state without scheduling it.
func (s *Session) Query() (Query, error) {
	return s.store.Query()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	return snapshotFromStore(s.store.Snapshot())
}

// FilterBlocks returns the static filter blocks of the session.
func (s *Session) FilterBlocks() []FilterBlock {
	return s.store.Blocks()
}

// Drain blocks until every dispatched content source call has completed.
// Queries still waiting for the debounce window are not affected.
func (s *Session) Drain() {
	s.store.Drain()
}

// HealthStatus represents the health of the session's backing services.
type HealthStatus struct {
	Status string            // "ok", "degraded"
	Checks map[string]string // component → "ok"/"error"
}

// Health checks the response cache, when one is configured.
func (s *Session) Health(ctx context.Context) HealthStatus {
	report := s.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Results() {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// Close drops the pending query, aborts in-flight calls and releases the cache connection.
// Mutations after Close fail with ErrClosed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.store.Close()
		if s.cache != nil {
			s.cache.Close()
		}
		s.metrics.SessionClosed()
	})
}
