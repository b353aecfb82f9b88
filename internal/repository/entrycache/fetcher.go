// Package entrycache caches content source pages in a key-value store.
package entrycache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrysearch/internal/db"
	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
	"github.com/kailas-cloud/entrysearch/internal/metrics"
)

var cacheKeyPrefix = domain.KeyPrefix + "resp_cache:"

// DefaultTTL applies when New is given a non-positive ttl.
const DefaultTTL = time.Minute

// Fetcher is the decorated content source.
type Fetcher interface {
	Fetch(ctx context.Context, q query.Query) (entry.Page, error)
}

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedFetcher serves repeated queries from the cache.
type CachedFetcher struct {
	inner   Fetcher
	store   store
	ttl     time.Duration
	metrics *metrics.Search
	logger  *zap.Logger
}

// New creates a caching decorator.
func New(inner Fetcher, s store, ttl time.Duration, m *metrics.Search, logger *zap.Logger) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFetcher{inner: inner, store: s, ttl: ttl, metrics: m, logger: logger}
}

// Fetch returns a cached page or calls the inner fetcher.
// Cache failures are logged and never fail the fetch. Failed fetches are not cached.
func (c *CachedFetcher) Fetch(ctx context.Context, q query.Query) (entry.Page, error) {
	key, err := cacheKey(q)
	if err != nil {
		return c.fetch(ctx, q)
	}

	if page, ok := c.getFromCache(ctx, key); ok {
		c.metrics.Cache("hit")
		return page, nil
	}
	c.metrics.Cache("miss")

	page, err := c.fetch(ctx, q)
	if err != nil {
		return entry.Page{}, err
	}

	c.putToCache(ctx, key, page)
	return page, nil
}

func (c *CachedFetcher) fetch(ctx context.Context, q query.Query) (entry.Page, error) {
	page, err := c.inner.Fetch(ctx, q)
	if err != nil {
		return entry.Page{}, fmt.Errorf("fetch page: %w", err)
	}
	return page, nil
}

func cacheKey(q query.Query) (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("encode cache key: %w", err)
	}
	h := sha256.Sum256(data)
	return cacheKeyPrefix + hex.EncodeToString(h[:]), nil
}

func (c *CachedFetcher) getFromCache(ctx context.Context, key string) (entry.Page, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached page", zap.String("key", key), zap.Error(err))
		}
		return entry.Page{}, false
	}
	if len(data) == 0 {
		return entry.Page{}, false
	}

	var page entry.Page
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("Failed to parse cached page", zap.String("key", key), zap.Error(err))
		return entry.Page{}, false
	}
	if page.Entries == nil {
		page.Entries = []*entry.Raw{}
	}
	return page, true
}

func (c *CachedFetcher) putToCache(ctx context.Context, key string, page entry.Page) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("Failed to encode page for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache page", zap.String("key", key), zap.Error(err))
	}
}
