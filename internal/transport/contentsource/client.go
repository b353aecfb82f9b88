// Package contentsource posts search queries to the remote entry-query endpoint.
package contentsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
	"github.com/kailas-cloud/entrysearch/internal/metrics"
)

// maxErrorBody caps how much of a non-2xx body is kept in the error.
const maxErrorBody = 512

// Config holds the content source settings.
type Config struct {
	Endpoint   string
	Headers    map[string]string
	HTTPClient *http.Client
	Metrics    *metrics.Search
	Logger     *zap.Logger
}

// Client fetches entry pages from the content source.
type Client struct {
	endpoint string
	headers  map[string]string
	http     *http.Client
	metrics  *metrics.Search
	logger   *zap.Logger
}

// New creates a content source client. A nil HTTPClient uses http.DefaultClient.
func New(cfg *Config) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("content source endpoint is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		if v == "" {
			continue
		}
		headers[k] = v
	}
	return &Client{
		endpoint: cfg.Endpoint,
		headers:  headers,
		http:     hc,
		metrics:  cfg.Metrics,
		logger:   logger,
	}, nil
}

// Endpoint returns the request target.
func (c *Client) Endpoint() string { return c.endpoint }

// Fetch posts q and decodes the returned page.
// Missing entries/totalCount default to empty/0.
func (c *Client) Fetch(ctx context.Context, q query.Query) (entry.Page, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return entry.Page{}, fmt.Errorf("encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return entry.Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.SourceRequest("error")
		return entry.Page{}, fmt.Errorf("%w: %w", domain.ErrContentSource, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.metrics.SourceRequest(metrics.StatusClass(resp.StatusCode))
	c.logger.Debug("content source responded",
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.Int("limit", q.Limit),
		zap.Int("offset", q.Offset),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return entry.Page{}, domain.NewStatusError(resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var page entry.Page
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return entry.Page{}, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}
	if page.Entries == nil {
		page.Entries = []*entry.Raw{}
	}
	return page, nil
}
