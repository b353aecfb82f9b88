package entrysearch

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
	"github.com/kailas-cloud/entrysearch/internal/metrics"
)

// Mutation outcome labels.
const (
	statusOK      = "ok"
	statusInvalid = "invalid"
	statusClosed  = "closed"
	statusError   = "error"
)

type sdkMetrics struct {
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "entrysearch",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Session mutations by operation and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "entrysearch",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "Time spent deriving and scheduling a query.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"operation"}),
	}
	if err := metrics.RegisterOrReuse(reg, &m.mutations); err != nil {
		return nil, err
	}
	if err := metrics.RegisterOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

// observer logs and counts session mutations. A nil observer is a no-op.
type observer struct {
	logger  *zap.Logger
	metrics *sdkMetrics
}

func newObserver(logger *zap.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if reg != nil {
		m, err := newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
		o.metrics = m
	}
	return o, nil
}

func mutationStatus(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, domain.ErrClosed):
		return statusClosed
	case errors.Is(err, domain.ErrInvalidPage), errors.Is(err, domain.ErrInvalidPageSize):
		return statusInvalid
	default:
		return statusError
	}
}

func (o *observer) observe(op string, start time.Time, q query.Query, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)
	status := mutationStatus(err)

	if o.metrics != nil {
		o.metrics.mutations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if err != nil {
		o.logger.Warn("Session mutation rejected",
			zap.String("op", op),
			zap.String("status", status),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("Query scheduled",
		zap.String("op", op),
		zap.String("search", q.Search),
		zap.Int("limit", q.Limit),
		zap.Int("offset", q.Offset),
		zap.Int("filters", len(q.Filters)),
	)
}
