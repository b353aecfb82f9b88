package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedRoute = "unmatched"

// HTTP holds the session API request metrics.
// Routes are labelled by chi pattern and responses by status class, so session ids
// never reach a label.
type HTTP struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	inFlight prometheus.Gauge
}

// NewHTTP creates HTTP metrics and registers them on reg. A nil reg leaves them unregistered.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	labels := []string{"method", "route", "code"}
	h := &HTTP{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Session API request duration in seconds.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, labels),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Session API requests.",
		}, labels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Session API requests being served.",
		}),
	}
	if reg == nil {
		return h, nil
	}
	if err := RegisterOrReuse(reg, &h.duration); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &h.total); err != nil {
		return nil, err
	}
	if err := RegisterOrReuse(reg, &h.inFlight); err != nil {
		return nil, err
	}
	return h, nil
}

// Middleware records every request once the router has resolved its pattern.
func (h *HTTP) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.inFlight.Inc()
			defer h.inFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routeLabel(chi.RouteContext(r.Context()))
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			code := StatusClass(status)
			h.duration.WithLabelValues(r.Method, route, code).Observe(time.Since(start).Seconds())
			h.total.WithLabelValues(r.Method, route, code).Inc()
		})
	}
}

func routeLabel(rctx *chi.Context) string {
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}
