package entry

// System field names. They are reserved and always win over same-named domain fields.
const (
	FieldID          = "id"
	FieldSlug        = "slug"
	FieldContentType = "contentType"
	FieldCreated     = "created"
	FieldModified    = "modified"
)

// Raw is an entry as returned by the content source.
type Raw struct {
	Entry    RawBody `json:"entry"`
	Created  string  `json:"created"`
	Modified string  `json:"modified"`
}

// RawBody is the entry body: system identity plus wrapped fields.
type RawBody struct {
	ID     string   `json:"_id"`
	Slug   string   `json:"_slug,omitempty"`
	Type   string   `json:"type"`
	Fields FieldSet `json:"fields,omitempty"`
}

// BlockValue is a CMS block instance: a type plus wrapped fields.
type BlockValue struct {
	ID     string   `json:"_id,omitempty"`
	Type   string   `json:"type"`
	Fields FieldSet `json:"fields,omitempty"`
}

// Page is one content source response. A null element decodes to a nil entry.
type Page struct {
	Entries    []*Raw `json:"entries"`
	TotalCount int   `json:"totalCount"`
}

// Record is a flattened entry. Composite fields hold []Record.
// A nil Record is the empty read-only record.
type Record map[string]any

// ID returns the system id.
func (r Record) ID() string { return r.str(FieldID) }

// Slug returns the system slug.
func (r Record) Slug() string { return r.str(FieldSlug) }

// ContentType returns the system content type.
func (r Record) ContentType() string { return r.str(FieldContentType) }

// String returns a string field, or "" when absent or not a string.
func (r Record) String(key string) string { return r.str(key) }

// Records returns a composite field, or nil when absent or not a list.
func (r Record) Records(key string) []Record {
	v, _ := r[key].([]Record)
	return v
}

// Clone deep-copies r, including nested records and decoded JSON arrays and objects.
// A nil record stays nil.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneAll deep-copies every record.
func CloneAll(recs []Record) []Record {
	if recs == nil {
		return nil
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []Record:
		return CloneAll(t)
	case Record:
		return t.Clone()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func (r Record) str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Map flattens a raw entry and merges in its system fields.
// A nil entry maps to the empty read-only record.
func Map(raw *Raw) Record {
	if raw == nil {
		return nil
	}

	rec := MapFields(raw.Entry.Fields)
	rec[FieldID] = raw.Entry.ID
	rec[FieldSlug] = raw.Entry.Slug
	rec[FieldContentType] = raw.Entry.Type
	rec[FieldCreated] = raw.Created
	rec[FieldModified] = raw.Modified
	return rec
}

// MapFields unwraps every field, recursing into composite values.
func MapFields(fields FieldSet) Record {
	rec := make(Record, len(fields)+5)
	for key, f := range fields {
		switch f.Kind() {
		case KindScalar:
			rec[key] = f.Value()
		case KindList:
			items := f.Items()
			nested := make([]Record, len(items))
			for i, set := range items {
				nested[i] = MapFields(set)
			}
			rec[key] = nested
		}
	}
	return rec
}

// MapAll maps every entry of a page, preserving order. Nil entries map to nil records.
func MapAll(raws []*Raw) []Record {
	out := make([]Record, len(raws))
	for i, raw := range raws {
		out[i] = Map(raw)
	}
	return out
}
