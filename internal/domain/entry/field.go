package entry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the variant held by a Field.
type Kind uint8

// Field kinds.
const (
	KindScalar Kind = iota
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is a single wrapped field value: either a scalar or a list of nested field sets.
type Field struct {
	kind   Kind
	scalar any
	list   []FieldSet
}

// FieldSet is a set of wrapped fields keyed by field name.
type FieldSet map[string]Field

// Scalar wraps a leaf value.
func Scalar(v any) Field { return Field{kind: KindScalar, scalar: v} }

// List wraps an ordered list of nested field sets.
func List(sets ...FieldSet) Field {
	if sets == nil {
		sets = []FieldSet{}
	}
	return Field{kind: KindList, list: sets}
}

// Kind returns the variant tag.
func (f Field) Kind() Kind { return f.kind }

// Value returns the scalar value (nil for lists).
func (f Field) Value() any { return f.scalar }

// Items returns the nested field sets (nil for scalars).
func (f Field) Items() []FieldSet { return f.list }

// block is one element of a composite value: {"type": "...", "fields": {...}}.
type block struct {
	Fields FieldSet `json:"fields"`
}

// UnmarshalJSON decodes a {"value": ...} envelope.
// An array whose every element is an object decodes as a list of nested field sets;
// anything else (including empty arrays and arrays of scalars) stays a scalar.
func (f *Field) UnmarshalJSON(data []byte) error {
	var env struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode field envelope: %w", err)
	}

	if isObjectArray(env.Value) {
		var blocks []block
		if err := json.Unmarshal(env.Value, &blocks); err != nil {
			return fmt.Errorf("decode nested fields: %w", err)
		}
		sets := make([]FieldSet, len(blocks))
		for i, b := range blocks {
			sets[i] = b.Fields
		}
		*f = List(sets...)
		return nil
	}

	var v any
	if len(env.Value) > 0 {
		if err := json.Unmarshal(env.Value, &v); err != nil {
			return fmt.Errorf("decode field value: %w", err)
		}
	}
	*f = Scalar(v)
	return nil
}

// MarshalJSON encodes the field back into its {"value": ...} envelope.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.kind == KindList {
		blocks := make([]block, len(f.list))
		for i, s := range f.list {
			blocks[i] = block{Fields: s}
		}
		return json.Marshal(struct {
			Value []block `json:"value"`
		}{Value: blocks})
	}
	return json.Marshal(struct {
		Value any `json:"value"`
	}{Value: f.scalar})
}

func isObjectArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
		return false
	}
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			return false
		}
	}
	return true
}
