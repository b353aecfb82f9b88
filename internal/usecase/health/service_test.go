package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockCachePinger struct {
	err      error
	deadline bool
}

func (m *mockCachePinger) Ping(ctx context.Context) error {
	_, m.deadline = ctx.Deadline()
	return m.err
}

type fixedCounter int

func (c fixedCounter) Len() int { return int(c) }

// --- Tests ---

func TestCheck_CacheHealthy(t *testing.T) {
	cache := &mockCachePinger{}
	r := New(cache, nil).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["cache"].Result != CheckOK {
		t.Errorf("expected cache %q, got %q", CheckOK, r.Checks["cache"].Result)
	}
	if !cache.deadline {
		t.Error("expected the probe to run under a deadline")
	}
	if r.Sessions != -1 {
		t.Errorf("expected -1 sessions without a counter, got %d", r.Sessions)
	}
}

func TestCheck_CacheError(t *testing.T) {
	pingErr := errors.New("conn refused")
	r := New(&mockCachePinger{err: pingErr}, fixedCounter(3)).Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	c := r.Checks["cache"]
	if c.Result != CheckError || !errors.Is(c.Err, pingErr) {
		t.Errorf("expected cache error, got %+v", c)
	}
	if r.Sessions != 3 {
		t.Errorf("expected 3 sessions, got %d", r.Sessions)
	}
	if got := r.Results(); got["cache"] != CheckError {
		t.Errorf("Results() = %v", got)
	}
}

func TestCheck_NoCache(t *testing.T) {
	r := New(nil, fixedCounter(0)).Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["cache"]; ok {
		t.Error("cache check should be absent when the cache is disabled")
	}
	if r.Sessions != 0 {
		t.Errorf("expected 0 sessions, got %d", r.Sessions)
	}
}

func TestProbe_Timeout(t *testing.T) {
	svc := New(nil, nil)
	svc.timeout = 10 * time.Millisecond

	c := svc.probe(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if c.Result != CheckError || !errors.Is(c.Err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %+v", c)
	}
}
