// Package health reports the readiness of the search engine's dependencies.
package health

import (
	"context"
	"time"
)

// DefaultProbeTimeout bounds a single dependency probe.
const DefaultProbeTimeout = 2 * time.Second

// Status is the aggregated health status.
type Status string

const (
	// Healthy means every probed dependency answered.
	Healthy Status = "ok"
	// Degraded means at least one dependency failed; sessions keep serving from the content source.
	Degraded Status = "degraded"
)

// CheckResult is the outcome of one dependency probe.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component describes one probed dependency.
type Component struct {
	Result  CheckResult
	Latency time.Duration
	Err     error
}

// Report aggregates probe results. Sessions is -1 when no counter is wired.
type Report struct {
	Status   Status
	Checks   map[string]Component
	Sessions int
}

// Results flattens Checks to their outcomes.
func (r Report) Results() map[string]CheckResult {
	out := make(map[string]CheckResult, len(r.Checks))
	for name, c := range r.Checks {
		out[name] = c.Result
	}
	return out
}

// Service probes the engine's optional dependencies.
type Service struct {
	cache    CachePinger
	sessions SessionCounter
	timeout  time.Duration
}

// New creates a Service. Either argument may be nil: the cache is optional and the
// SDK has no session registry.
func New(cache CachePinger, sessions SessionCounter) *Service {
	return &Service{cache: cache, sessions: sessions, timeout: DefaultProbeTimeout}
}

// Check probes every configured dependency.
func (s *Service) Check(ctx context.Context) Report {
	report := Report{Status: Healthy, Checks: map[string]Component{}, Sessions: -1}

	if s.cache != nil {
		report.Checks["cache"] = s.probe(ctx, s.cache.Ping)
	}
	if s.sessions != nil {
		report.Sessions = s.sessions.Len()
	}

	for _, c := range report.Checks {
		if c.Result == CheckError {
			report.Status = Degraded
			break
		}
	}
	return report
}

func (s *Service) probe(ctx context.Context, ping func(context.Context) error) Component {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	c := Component{Result: CheckOK, Latency: time.Since(start), Err: err}
	if err != nil {
		c.Result = CheckError
	}
	return c
}
