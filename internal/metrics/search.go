package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "entrysearch"

// Query outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
	StatusStale = "stale"
)

// Search holds the engine metrics. A nil *Search records nothing.
type Search struct {
	queries        *prometheus.CounterVec
	queryDuration  prometheus.Histogram
	scheduled      prometheus.Counter
	debounced      prometheus.Counter
	sourceRequests *prometheus.CounterVec
	cache          *prometheus.CounterVec
	sessions       prometheus.Gauge
}

// NewSearch creates engine metrics and registers them on reg.
// Collectors already registered by another session are reused.
func NewSearch(reg prometheus.Registerer) (*Search, error) {
	m := &Search{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Dispatched queries by outcome (ok, error, stale).",
		}, []string{"status"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Content source round trip per dispatched query.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_scheduled_total",
			Help:      "Queries armed by state changes.",
		}),
		debounced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_debounced_total",
			Help:      "Armed queries superseded before their debounce window elapsed.",
		}),
		sourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_source_requests_total",
			Help:      "HTTP requests to the content source by status class.",
		}, []string{"status"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_cache_total",
			Help:      "Response cache hits and misses.",
		}, []string{"result"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open search sessions.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	if err := RegisterOrReuse(reg, &m.queries); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &m.queryDuration); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &m.scheduled); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &m.debounced); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &m.sourceRequests); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &m.cache); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &m.sessions); err != nil {
		return nil, err
	}
	return m, nil
}

// RegisterOrReuse registers c, or points c at the collector already registered under
// the same descriptor so several sessions can share one registry.
func RegisterOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("entrysearch: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("entrysearch: register metric: %w", err)
	}
	return nil
}

// ObserveQuery records the outcome and duration of a dispatched query.
func (m *Search) ObserveQuery(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(status).Inc()
	m.queryDuration.Observe(d.Seconds())
}

// Scheduled counts an armed query; superseded reports whether it replaced a pending one.
func (m *Search) Scheduled(superseded bool) {
	if m == nil {
		return
	}
	m.scheduled.Inc()
	if superseded {
		m.debounced.Inc()
	}
}

// SourceRequest counts a content source HTTP exchange ("2xx", "4xx", "5xx", "error").
func (m *Search) SourceRequest(status string) {
	if m == nil {
		return
	}
	m.sourceRequests.WithLabelValues(status).Inc()
}

// Cache counts a response cache lookup ("hit" or "miss").
func (m *Search) Cache(result string) {
	if m == nil {
		return
	}
	m.cache.WithLabelValues(result).Inc()
}

// SessionOpened increments the active session gauge.
func (m *Search) SessionOpened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionClosed decrements the active session gauge.
func (m *Search) SessionClosed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// StatusClass maps an HTTP status code to its label ("2xx", "4xx", ...).
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", code/100)
}
