package query

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/entrysearch/internal/domain"
	"github.com/kailas-cloud/entrysearch/internal/domain/filter"
)

func TestNew_Pagination(t *testing.T) {
	q, err := New(Params{Locale: "en-US", PageSize: 20, CurrentPage: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Offset != 40 || q.Limit != 20 {
		t.Errorf("offset/limit = %d/%d, want 40/20", q.Offset, q.Limit)
	}
	if !q.WithTotalCount {
		t.Error("WithTotalCount must always be true")
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(Params{PageSize: 0}); !errors.Is(err, domain.ErrInvalidPageSize) {
		t.Errorf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, err := New(Params{PageSize: 10, CurrentPage: -1}); !errors.Is(err, domain.ErrInvalidPage) {
		t.Errorf("expected ErrInvalidPage, got %v", err)
	}
}

func TestQuery_JSONOmitsEmptySearch(t *testing.T) {
	q, _ := New(Params{Locale: "de-DE", PageSize: 10})
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["search"]; ok {
		t.Errorf("search present in %s", data)
	}
	if _, ok := m["filters"]; ok {
		t.Errorf("empty filters present in %s", data)
	}
	if m["withTotalCount"] != true || m["locale"] != "de-DE" {
		t.Errorf("unexpected payload %s", data)
	}
}

func TestQuery_JSONIncludesSearchAndFilters(t *testing.T) {
	q, _ := New(Params{
		Filters:  filter.Map{"category": filter.Clause{"in": []string{"shoes"}}},
		Locale:   "en-US",
		Search:   "red",
		PageSize: 10,
	})
	data, _ := json.Marshal(q)
	want := `{"filters":{"category":{"in":["shoes"]}},"locale":"en-US","withTotalCount":true,"limit":10,"offset":0,"search":"red"}`
	if string(data) != want {
		t.Errorf("payload = %s\nwant      %s", data, want)
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{45, 20, 3},
		{40, 20, 2},
		{0, 20, 0},
		{1, 20, 1},
		{20, 1, 20},
		{10, 0, 0},
	}
	for _, tc := range tests {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.size, got, tc.want)
		}
	}
}

func TestPageSize_JSON(t *testing.T) {
	var v struct {
		A PageSize `json:"a"`
		B PageSize `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": 20, "b": "12"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 20 || v.B != 12 {
		t.Errorf("got %d/%d, want 20/12", v.A, v.B)
	}

	var bad struct {
		P PageSize `json:"p"`
	}
	for _, in := range []string{`{"p": "abc"}`, `{"p": 0}`, `{"p": "-3"}`, `{"p": true}`} {
		if err := json.Unmarshal([]byte(in), &bad); !errors.Is(err, domain.ErrInvalidPageSize) {
			t.Errorf("%s: expected ErrInvalidPageSize, got %v", in, err)
		}
	}
}

func TestPageSize_YAML(t *testing.T) {
	var v struct {
		A PageSize `yaml:"a"`
		B PageSize `yaml:"b"`
	}
	if err := yaml.Unmarshal([]byte("a: 20\nb: \"12\"\n"), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A.Int() != 20 || v.B.Int() != 12 {
		t.Errorf("got %d/%d, want 20/12", v.A, v.B)
	}

	var bad struct {
		P PageSize `yaml:"p"`
	}
	if err := yaml.Unmarshal([]byte("p: [1]\n"), &bad); err == nil {
		t.Error("expected error for sequence page size")
	}
}
