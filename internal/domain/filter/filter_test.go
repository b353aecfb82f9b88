package filter

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
)

func TestBlockClause_SetOperators(t *testing.T) {
	for _, op := range []string{OpIn, OpNotIn} {
		t.Run(op, func(t *testing.T) {
			got := Compose([]Block{{Key: "color", Operator: op, Value: "a|b|c"}}, nil)
			want := Map{"color": Clause{op: []string{"a", "b", "c"}}}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Compose = %v, want %v", got, want)
			}
		})
	}
}

func TestBlockClause_ScalarOperators(t *testing.T) {
	for _, op := range []string{"eq", "neq", "gte", "lt", "match", "", "IN"} {
		t.Run("op="+op, func(t *testing.T) {
			got := Compose([]Block{{Key: "brand", Operator: op, Value: "a|b"}}, nil)
			want := Map{"brand": Clause{op: "a|b"}}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Compose = %v, want %v", got, want)
			}
		})
	}
}

func TestCompose_DynamicReplacesWholeEntry(t *testing.T) {
	blocks := []Block{
		{Key: "category", Operator: "in", Value: "shoes|bags"},
		{Key: "brand", Operator: "eq", Value: "acme"},
	}
	dynamic := Map{"category": Clause{"eq": "hats"}}

	got := Compose(blocks, dynamic)
	want := Map{
		"category": Clause{"eq": "hats"},
		"brand":    Clause{"eq": "acme"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compose = %v, want %v", got, want)
	}
}

func TestCompose_Scenario(t *testing.T) {
	blocks := []Block{{Key: "category", Operator: "in", Value: "shoes|bags"}}
	dynamic := Map{"price": Clause{"gte": 10}}

	got := Compose(blocks, dynamic)
	want := Map{
		"category": Clause{"in": []string{"shoes", "bags"}},
		"price":    Clause{"gte": 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Compose = %v, want %v", got, want)
	}
}

func TestBase_LastWriteWins(t *testing.T) {
	got := Base([]Block{
		{Key: "k", Operator: "eq", Value: "first"},
		{Key: "k", Operator: "neq", Value: "second"},
	})
	want := Map{"k": Clause{"neq": "second"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Base = %v, want %v", got, want)
	}
}

func TestBase_SkipsEmptyKeyAndHandlesNil(t *testing.T) {
	if got := Base(nil); len(got) != 0 {
		t.Errorf("Base(nil) = %v, want empty", got)
	}
	got := Base([]Block{{Key: "", Operator: "eq", Value: "x"}})
	if len(got) != 0 {
		t.Errorf("Base with empty key = %v, want empty", got)
	}
}

func TestComposer_BaseIsNotMutated(t *testing.T) {
	c := NewComposer([]Block{{Key: "category", Operator: "eq", Value: "shoes"}})

	first := c.Compose(Map{"category": Clause{"eq": "bags"}, "price": Clause{"lt": 5}})
	if first["category"]["eq"] != "bags" {
		t.Fatalf("dynamic did not override: %v", first)
	}

	second := c.Compose(nil)
	want := Map{"category": Clause{"eq": "shoes"}}
	if !reflect.DeepEqual(second, want) {
		t.Errorf("memoized base changed: %v, want %v", second, want)
	}
	if !reflect.DeepEqual(c.Base(), want) {
		t.Errorf("Base() = %v, want %v", c.Base(), want)
	}
}

func TestComposer_CopiesBlocks(t *testing.T) {
	blocks := []Block{{Key: "a", Operator: "eq", Value: "1"}}
	c := NewComposer(blocks)
	blocks[0].Value = "2"

	if got := c.Compose(nil)["a"]["eq"]; got != "1" {
		t.Errorf("composer observed caller mutation: %v", got)
	}
	if got := c.Blocks()[0].Value; got != "1" {
		t.Errorf("Blocks()[0].Value = %q, want 1", got)
	}
}

func TestBlocksFromValues(t *testing.T) {
	const payload = `[
	  {"_id": "f1", "type": "filter", "fields": {
	    "key": {"value": "category"}, "operator": {"value": "in"}, "value": {"value": "shoes|bags"}
	  }},
	  {"type": "filter", "fields": {
	    "key": {"value": "price"}, "operator": {"value": "gte"}, "value": {"value": 10}
	  }}
	]`
	var values []entry.BlockValue
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := BlocksFromValues(values)
	want := []Block{
		{ID: "f1", Key: "category", Operator: "in", Value: "shoes|bags"},
		{ID: "1", Key: "price", Operator: "gte", Value: "10"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BlocksFromValues = %+v, want %+v", got, want)
	}

	m := Base(got)
	if !reflect.DeepEqual(m["category"], Clause{"in": []string{"shoes", "bags"}}) {
		t.Errorf("category clause = %v", m["category"])
	}
}
