package entrysearch

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrysearch/internal/domain/filter"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
)

// Option configures a Session.
type Option interface {
	apply(*sessionConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*sessionConfig)

func (f optionFunc) apply(c *sessionConfig) { f(c) }

type sessionConfig struct {
	endpoint   string
	headers    map[string]string
	httpClient *http.Client

	wait        time.Duration
	pageSize    int
	pageSizeErr error
	locale      string
	blocks      []filter.Block
	clock       Clock

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

// WithEndpoint sets the content source query URL. Required.
func WithEndpoint(url string) Option {
	return optionFunc(func(c *sessionConfig) {
		c.endpoint = url
	})
}

// WithHeaders adds static headers to every content source request.
func WithHeaders(headers map[string]string) Option {
	return optionFunc(func(c *sessionConfig) {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	})
}

// WithHTTPClient sets the HTTP client used for content source calls.
// Its Timeout bounds each call. Defaults to http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *sessionConfig) {
		c.httpClient = hc
	})
}

// WithWait sets the debounce window. Default: 300ms.
func WithWait(d time.Duration) Option {
	return optionFunc(func(c *sessionConfig) {
		c.wait = d
	})
}

// WithPageSize sets the number of entries per page. Default: 50.
func WithPageSize(n int) Option {
	return optionFunc(func(c *sessionConfig) {
		c.pageSize = n
		c.pageSizeErr = nil
	})
}

// WithPageSizeString sets the page size from its textual form, as found in CMS parameters.
// New fails with ErrInvalidPageSize when s is not a positive integer.
func WithPageSizeString(s string) Option {
	return optionFunc(func(c *sessionConfig) {
		n, err := query.ParsePageSize(s)
		c.pageSize = n.Int()
		c.pageSizeErr = err
	})
}

// WithLocale sets the locale sent with every query. Default: en-US.
func WithLocale(locale string) Option {
	return optionFunc(func(c *sessionConfig) {
		c.locale = locale
	})
}

// WithFilterBlocks appends static filter blocks.
func WithFilterBlocks(blocks ...FilterBlock) Option {
	return optionFunc(func(c *sessionConfig) {
		c.blocks = append(c.blocks, blocks...)
	})
}

// WithBlockValues appends static filter blocks supplied as CMS block values
// with key, operator and value fields. A block without an id gets its index.
func WithBlockValues(values ...BlockValue) Option {
	return optionFunc(func(c *sessionConfig) {
		c.blocks = append(c.blocks, filter.BlocksFromValues(values)...)
	})
}

// WithClock sets the clock arming debounce timers.
func WithClock(clock Clock) Option {
	return optionFunc(func(c *sessionConfig) {
		c.clock = clock
	})
}

// WithRedisCache caches content source responses in Redis or Valkey for ttl.
// Identical queries within ttl are answered from the cache. Disabled by default.
func WithRedisCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *sessionConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		c.cacheTTL = ttl
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *sessionConfig) {
		c.logger = l
	})
}

// WithPrometheus registers session and SDK metrics on the given registerer.
// Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *sessionConfig) {
		c.metricsReg = reg
	})
}
