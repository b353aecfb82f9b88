// Package filter composes static filter blocks and dynamic UI filters into one filter map.
package filter

import (
	"maps"
	"strconv"
	"strings"

	"github.com/kailas-cloud/entrysearch/internal/domain/entry"
)

// SetDelimiter separates the members of a set-membership value.
const SetDelimiter = "|"

// Set-membership operators.
const (
	OpIn    = "in"
	OpNotIn = "nin"
)

// Block is a static filter criterion configured once per session.
type Block struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"filterName,omitempty" yaml:"name,omitempty"`
	Key      string `json:"key" yaml:"key"`
	Operator string `json:"operator" yaml:"operator"`
	Value    string `json:"value" yaml:"value"`
}

// Clause maps an operator to its value: a scalar, or []string for set-membership operators.
type Clause map[string]any

// Map maps a field key to its clause.
type Map map[string]Clause

// IsSetOperator reports whether op takes a delimited list of values.
func IsSetOperator(op string) bool {
	return op == OpIn || op == OpNotIn
}

// Clause builds the clause for this block.
func (b Block) Clause() Clause {
	if IsSetOperator(b.Operator) {
		return Clause{b.Operator: strings.Split(b.Value, SetDelimiter)}
	}
	return Clause{b.Operator: b.Value}
}

// Base reduces blocks into a filter map in input order; the last block wins on duplicate keys.
// Blocks without a key are skipped.
func Base(blocks []Block) Map {
	m := make(Map, len(blocks))
	for _, b := range blocks {
		if b.Key == "" {
			continue
		}
		m[b.Key] = b.Clause()
	}
	return m
}

// Compose overlays dynamic onto the base built from blocks.
func Compose(blocks []Block, dynamic Map) Map {
	return overlay(Base(blocks), dynamic)
}

// Composer memoizes the base map of a fixed block set.
type Composer struct {
	blocks []Block
	base   Map
}

// NewComposer builds the base map once. The blocks slice is copied.
func NewComposer(blocks []Block) *Composer {
	cp := make([]Block, len(blocks))
	copy(cp, blocks)
	return &Composer{blocks: cp, base: Base(cp)}
}

// Blocks returns a copy of the static blocks.
func (c *Composer) Blocks() []Block {
	cp := make([]Block, len(c.blocks))
	copy(cp, c.blocks)
	return cp
}

// Base returns a copy of the memoized base map.
func (c *Composer) Base() Map {
	return maps.Clone(c.base)
}

// Compose returns the base map with dynamic entries replacing same-key base entries.
// The memoized base is never mutated.
func (c *Composer) Compose(dynamic Map) Map {
	return overlay(maps.Clone(c.base), dynamic)
}

func overlay(base, dynamic Map) Map {
	if base == nil {
		base = make(Map, len(dynamic))
	}
	for k, v := range dynamic {
		base[k] = v
	}
	return base
}

// BlocksFromValues converts CMS block values (key/operator/value wrapped fields) into blocks.
// A block without an id gets its index as id.
func BlocksFromValues(values []entry.BlockValue) []Block {
	out := make([]Block, 0, len(values))
	for i, v := range values {
		rec := entry.MapFields(v.Fields)
		id := v.ID
		if id == "" {
			id = strconv.Itoa(i)
		}
		out = append(out, Block{
			ID:       id,
			Name:     stringValue(rec["filterName"]),
			Key:      stringValue(rec["key"]),
			Operator: stringValue(rec["operator"]),
			Value:    stringValue(rec["value"]),
		})
	}
	return out
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
