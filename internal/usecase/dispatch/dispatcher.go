// Package dispatch debounces search queries and applies their responses to a sink.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
	"github.com/kailas-cloud/entrysearch/internal/domain/query"
	"github.com/kailas-cloud/entrysearch/internal/metrics"
	"github.com/kailas-cloud/entrysearch/internal/scheduler"
)

// Config holds dispatcher settings. Zero values pick the defaults.
type Config struct {
	Wait    time.Duration
	Clock   scheduler.Clock
	Metrics *metrics.Search
	Logger  *zap.Logger
}

// Dispatcher collapses bursts of queries into one content source call per debounce window.
//
// Each call captures a sequence number when it is dispatched; only the response of the
// latest dispatched call reaches the sink. Older calls are not aborted, their responses
// are discarded.
type Dispatcher struct {
	fetcher Fetcher
	sink    Sink
	sched   *scheduler.Scheduler[query.Query]
	metrics *metrics.Search
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	seq      uint64
	armed    int
	inFlight int
	loading  bool
	closed   bool
}

// New creates a dispatcher. ctx bounds every content source call; Close cancels it.
func New(ctx context.Context, fetcher Fetcher, sink Sink, cfg Config) *Dispatcher {
	wait := cfg.Wait
	if wait <= 0 {
		wait = domain.DefaultWait
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	d := &Dispatcher{
		fetcher: fetcher,
		sink:    sink,
		metrics: cfg.Metrics,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	d.sched = scheduler.New(cfg.Clock, wait, d.dispatch)
	return d
}

// Wait returns the debounce window.
func (d *Dispatcher) Wait() time.Duration { return d.sched.Delay() }

// Schedule arms q, replacing any query still waiting for its window to elapse.
// Calls already in flight are left running.
func (d *Dispatcher) Schedule(q query.Query) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	_, superseded := d.sched.Schedule(q)
	if !superseded {
		d.armed++
	}
	d.metrics.Scheduled(superseded)
	d.refreshLoadingLocked()
}

// Idle reports whether no query is armed or in flight.
func (d *Dispatcher) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.busyLocked()
}

// Drain blocks until every dispatched call has completed.
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

// Close drops the armed query, aborts in-flight calls and waits for them.
// The sink receives nothing after Close returns.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.sched.Stop()
	d.armed = 0
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}

// dispatch runs when a query survives its debounce window. The query stays counted
// as armed until it is claimed here, so loading never drops between the timer
// firing and the call starting.
func (d *Dispatcher) dispatch(q query.Query) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.armed > 0 {
		d.armed--
	}
	d.seq++
	seq := d.seq
	d.inFlight++
	d.wg.Add(1)
	d.refreshLoadingLocked()
	d.mu.Unlock()

	d.logger.Debug("Dispatching search query",
		zap.Uint64("seq", seq),
		zap.String("search", q.Search),
		zap.Int("limit", q.Limit),
		zap.Int("offset", q.Offset),
	)

	go d.run(seq, q)
}

func (d *Dispatcher) run(seq uint64, q query.Query) {
	defer d.wg.Done()

	start := time.Now()
	page, err := d.fetcher.Fetch(d.ctx, q)
	dur := time.Since(start)

	var records []entry.Record
	if err == nil {
		records = entry.MapAll(page.Entries)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.inFlight--
	defer d.refreshLoadingLocked()

	if d.closed {
		return
	}
	latest := seq == d.seq

	switch {
	case err != nil:
		d.metrics.ObserveQuery(metrics.StatusError, dur)
		d.logger.Error("Search query failed",
			zap.Uint64("seq", seq),
			zap.Bool("latest", latest),
			zap.Int("offset", q.Offset),
			zap.Duration("latency", dur),
			zap.Error(err),
		)
		if latest && !errors.Is(err, context.Canceled) {
			d.sink.Fail(err)
		}
	case !latest:
		d.metrics.ObserveQuery(metrics.StatusStale, dur)
		d.logger.Debug("Discarding stale search response",
			zap.Uint64("seq", seq),
			zap.Uint64("latest_seq", d.seq),
		)
	default:
		d.metrics.ObserveQuery(metrics.StatusOK, dur)
		d.sink.Apply(records, page.TotalCount)
	}
}

// refreshLoadingLocked reports loading while a query is armed or any call is in flight.
func (d *Dispatcher) refreshLoadingLocked() {
	if d.closed {
		return
	}
	loading := d.busyLocked()
	if loading == d.loading {
		return
	}
	d.loading = loading
	d.sink.SetLoading(loading)
}

func (d *Dispatcher) busyLocked() bool {
	return d.armed > 0 || d.inFlight > 0
}
