package entrysearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testWait = 100 * time.Millisecond

const pageBody = `{
	"totalCount": 45,
	"entries": [
		{
			"entry": {
				"_id": "e1", "_slug": "red-boot", "type": "product",
				"fields": {
					"title": {"value": "Red boot"},
					"variants": {"value": [
						{"type": "variant", "fields": {"size": {"value": "42"}}},
						{"type": "variant", "fields": {"size": {"value": "43"}}}
					]}
				}
			},
			"created": "2024-01-01T00:00:00Z",
			"modified": "2024-02-01T00:00:00Z"
		},
		{"entry": {"_id": "e2", "type": "product", "fields": {"id": {"value": "shadowed"}}}}
	]
}`

// contentSource is a fake content source recording decoded request bodies.
type contentSource struct {
	mu       sync.Mutex
	requests []map[string]any
	status   int
	body     string
}

func (c *contentSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	_ = json.NewDecoder(r.Body).Decode(&req)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	status, body := c.status, c.body
	c.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (c *contentSource) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *contentSource) last() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

func newTestSession(t *testing.T, src *contentSource, opts ...Option) (*Session, *ManualClock) {
	t.Helper()
	srv := httptest.NewServer(src)
	t.Cleanup(srv.Close)

	clk := NewManualClock()
	base := []Option{
		WithEndpoint(srv.URL),
		WithHTTPClient(srv.Client()),
		WithClock(clk),
		WithWait(testWait),
	}
	sess, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(sess.Close)
	return sess, clk
}

func settle(sess *Session, clk *ManualClock) {
	clk.Advance(testWait)
	sess.Drain()
}

func TestNew_NoEndpoint(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Fatal("expected error when no endpoint provided")
	}
}

func TestNew_InvalidPageSizeString(t *testing.T) {
	_, err := New(context.Background(), WithEndpoint("http://localhost"), WithPageSizeString("ten"))
	if !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
}

func TestSession_InitialLoad(t *testing.T) {
	src := &contentSource{body: pageBody}
	sess, clk := newTestSession(t, src,
		WithPageSizeString("20"),
		WithFilterBlocks(FilterBlock{ID: "0", Key: "category", Operator: OpIn, Value: "boots|sandals"}),
	)

	if !sess.Snapshot().IsLoading {
		t.Fatal("expected initial query pending")
	}
	settle(sess, clk)

	if src.count() != 1 {
		t.Fatalf("expected 1 request, got %d", src.count())
	}
	req := src.last()
	if req["limit"] != float64(20) || req["offset"] != float64(0) {
		t.Errorf("expected limit 20 offset 0, got %v %v", req["limit"], req["offset"])
	}
	if req["locale"] != "en-US" || req["withTotalCount"] != true {
		t.Errorf("unexpected request %v", req)
	}
	if _, ok := req["search"]; ok {
		t.Error("expected empty search omitted")
	}
	filters, _ := req["filters"].(map[string]any)
	category, _ := filters["category"].(map[string]any)
	in, _ := category["in"].([]any)
	if len(in) != 2 || in[0] != "boots" || in[1] != "sandals" {
		t.Errorf("expected split set filter, got %v", req["filters"])
	}

	snap := sess.Snapshot()
	if snap.IsLoading {
		t.Error("expected loading cleared")
	}
	if snap.TotalCount != 45 || snap.TotalPages != 3 {
		t.Errorf("expected 45 entries over 3 pages, got %d over %d", snap.TotalCount, snap.TotalPages)
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(snap.Entries))
	}

	first := snap.Entries[0]
	if first.ID() != "e1" || first.Slug() != "red-boot" || first.ContentType() != "product" {
		t.Errorf("unexpected system fields %v", first)
	}
	if first.String("title") != "Red boot" {
		t.Errorf("expected hoisted title, got %v", first["title"])
	}
	variants := first.Records("variants")
	if len(variants) != 2 || variants[1].String("size") != "43" {
		t.Errorf("expected flattened variants, got %v", first["variants"])
	}
	if snap.Entries[1].ID() != "e2" {
		t.Errorf("expected system id to win, got %v", snap.Entries[1].ID())
	}
}

func TestSession_DebouncedSearch(t *testing.T) {
	src := &contentSource{body: pageBody}
	sess, clk := newTestSession(t, src)
	settle(sess, clk)

	for _, text := range []string{"r", "re", "red"} {
		if _, err := sess.SetSearch(text); err != nil {
			t.Fatalf("SetSearch: %v", err)
		}
		clk.Advance(testWait / 2)
	}
	if src.count() != 1 {
		t.Fatalf("expected no request inside the window, got %d", src.count()-1)
	}
	settle(sess, clk)

	if src.count() != 2 {
		t.Fatalf("expected exactly one debounced request, got %d", src.count()-1)
	}
	if got := src.last()["search"]; got != "red" {
		t.Errorf("expected last search %q, got %v", "red", got)
	}
	if sess.Snapshot().Search != "red" {
		t.Errorf("expected snapshot search red, got %q", sess.Snapshot().Search)
	}
}

func TestSession_Pagination(t *testing.T) {
	src := &contentSource{body: pageBody}
	sess, clk := newTestSession(t, src, WithPageSize(20))
	settle(sess, clk)

	q, err := sess.SetCurrentPage(2)
	if err != nil {
		t.Fatalf("SetCurrentPage: %v", err)
	}
	if q.Offset != 40 || q.Limit != 20 {
		t.Errorf("expected limit 20 offset 40, got %d %d", q.Limit, q.Offset)
	}

	q, err = sess.SetPageSize(10)
	if err != nil {
		t.Fatalf("SetPageSize: %v", err)
	}
	if q.Offset != 0 || sess.Snapshot().CurrentPage != 0 {
		t.Errorf("expected page reset, got offset %d", q.Offset)
	}
	settle(sess, clk)

	if sess.Snapshot().TotalPages != 5 {
		t.Errorf("expected 5 pages of 10, got %d", sess.Snapshot().TotalPages)
	}
	if _, err := sess.SetPageSize(0); !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, err := sess.SetCurrentPage(-1); !errors.Is(err, ErrInvalidPage) {
		t.Errorf("expected ErrInvalidPage, got %v", err)
	}
}

func TestSession_AdditionalFilters(t *testing.T) {
	src := &contentSource{body: pageBody}
	sess, clk := newTestSession(t, src,
		WithBlockValues(BlockValue{Type: "filter"}),
		WithFilterBlocks(FilterBlock{ID: "1", Key: "brand", Operator: "eq", Value: "acme"}),
	)
	settle(sess, clk)

	q, err := sess.SetAdditionalFilters(FilterMap{"brand": Clause{"ne": "acme"}})
	if err != nil {
		t.Fatalf("SetAdditionalFilters: %v", err)
	}
	if len(q.Filters["brand"]) != 1 || q.Filters["brand"]["ne"] != "acme" {
		t.Errorf("expected dynamic clause to replace base, got %v", q.Filters["brand"])
	}
	if len(sess.FilterBlocks()) != 2 {
		t.Errorf("expected 2 static blocks, got %d", len(sess.FilterBlocks()))
	}
}

func TestSession_FailureKeepsEntries(t *testing.T) {
	src := &contentSource{body: pageBody}
	sess, clk := newTestSession(t, src)
	settle(sess, clk)

	src.mu.Lock()
	src.status = http.StatusBadGateway
	src.body = `upstream down`
	src.mu.Unlock()

	if _, err := sess.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	settle(sess, clk)

	snap := sess.Snapshot()
	if snap.IsLoading {
		t.Error("expected loading cleared after failure")
	}
	if len(snap.Entries) != 2 {
		t.Errorf("expected previous entries retained, got %d", len(snap.Entries))
	}
	var se *StatusError
	if !errors.As(snap.Err, &se) || se.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", snap.Err)
	}
	if !errors.Is(snap.Err, ErrContentSource) {
		t.Error("expected error to match ErrContentSource")
	}

	src.mu.Lock()
	src.status = http.StatusOK
	src.body = `{"entries": [], "totalCount": 0}`
	src.mu.Unlock()

	if _, err := sess.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	settle(sess, clk)

	snap = sess.Snapshot()
	if snap.Err != nil {
		t.Errorf("expected error cleared, got %v", snap.Err)
	}
	if !snap.IsEmpty() {
		t.Error("expected empty result state")
	}
}

func TestSession_Close(t *testing.T) {
	src := &contentSource{body: pageBody}
	sess, clk := newTestSession(t, src)

	sess.Close()
	sess.Close()
	clk.Advance(testWait)

	if src.count() != 0 {
		t.Errorf("expected pending initial query dropped, got %d requests", src.count())
	}
	if _, err := sess.SetSearch("x"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestSession_Health(t *testing.T) {
	sess, _ := newTestSession(t, &contentSource{body: pageBody})

	h := sess.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("expected ok, got %q", h.Status)
	}
	if len(h.Checks) != 0 {
		t.Errorf("expected no checks without cache, got %v", h.Checks)
	}
}

func TestSession_Prometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	sess, clk := newTestSession(t, &contentSource{body: pageBody}, WithPrometheus(reg))
	settle(sess, clk)

	if _, err := sess.SetSearch("boot"); err != nil {
		t.Fatalf("SetSearch: %v", err)
	}
	if _, err := sess.SetPageSize(-1); err == nil {
		t.Fatal("expected error")
	}

	for _, name := range []string{
		"entrysearch_sdk_operations_total",
		"entrysearch_queries_total",
		"entrysearch_content_source_requests_total",
	} {
		n, err := testutil.GatherAndCount(reg, name)
		if err != nil {
			t.Fatalf("GatherAndCount(%s): %v", name, err)
		}
		if n == 0 {
			t.Errorf("expected %s series", name)
		}
	}

	mutations := sess.obs.metrics.mutations
	if got := testutil.ToFloat64(mutations.WithLabelValues("set_search", statusOK)); got != 1 {
		t.Errorf("set_search ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(mutations.WithLabelValues("set_page_size", statusInvalid)); got != 1 {
		t.Errorf("set_page_size invalid = %v, want 1", got)
	}
}

func TestMutationStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, statusOK},
		{ErrClosed, statusClosed},
		{fmt.Errorf("set page: %w", ErrInvalidPage), statusInvalid},
		{ErrInvalidPageSize, statusInvalid},
		{errors.New("boom"), statusError},
	}
	for _, tt := range tests {
		if got := mutationStatus(tt.err); got != tt.want {
			t.Errorf("mutationStatus(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
