package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSearch_NilSafe(t *testing.T) {
	var m *Search
	m.ObserveQuery(StatusOK, time.Second)
	m.Scheduled(true)
	m.SourceRequest("2xx")
	m.Cache("hit")
	m.SessionOpened()
	m.SessionClosed()
}

func TestSearch_Records(t *testing.T) {
	m, err := NewSearch(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSearch: %v", err)
	}

	m.ObserveQuery(StatusOK, 10*time.Millisecond)
	m.ObserveQuery(StatusStale, 10*time.Millisecond)
	m.Scheduled(false)
	m.Scheduled(true)
	m.Cache("miss")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if v := testutil.ToFloat64(m.queries.WithLabelValues(StatusStale)); v != 1 {
		t.Errorf("stale queries = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.scheduled); v != 2 {
		t.Errorf("scheduled = %v, want 2", v)
	}
	if v := testutil.ToFloat64(m.debounced); v != 1 {
		t.Errorf("debounced = %v, want 1", v)
	}
	if v := testutil.ToFloat64(m.sessions); v != 1 {
		t.Errorf("sessions = %v, want 1", v)
	}
}

func TestNewSearch_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewSearch(reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	b, err := NewSearch(reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	a.SessionOpened()
	b.SessionOpened()
	if v := testutil.ToFloat64(a.sessions); v != 2 {
		t.Errorf("shared gauge = %v, want 2", v)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 404: "4xx", 503: "5xx", 0: "unknown"}
	for code, want := range tests {
		if got := StatusClass(code); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", code, got, want)
		}
	}
}
