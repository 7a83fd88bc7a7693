package order

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one order: an ordered mapping from field name to value.
// The zero value is an empty record ready to use.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord builds a record from fields, preserving their order.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Field is a name/value pair used to build records.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for constructing a Field.
func F(name string, v Value) Field { return Field{Name: name, Value: v} }

// Set stores v under field, appending field to the key order if it is new.
func (r *Record) Set(field string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, exists := r.values[field]; !exists {
		r.keys = append(r.keys, field)
	}
	r.values[field] = v
}

// Get returns the value for field. ok is false when the record has no such field.
func (r Record) Get(field string) (v Value, ok bool) {
	v, ok = r.values[field]
	return v, ok
}

// Has reports whether the record carries field.
func (r Record) Has(field string) bool {
	_, ok := r.values[field]
	return ok
}

// Keys returns the field names in response order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.keys) }

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read record key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string, got %v", tok)
		}

		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("read record field %q: %w", key, err)
		}
		r.Set(key, valueFromJSON(raw))
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read record end: %w", err)
	}
	return nil
}

// MarshalJSON encodes the record as a JSON object in key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		v, err := r.values[key].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON encodes the value in its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInteger:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindText:
		return json.Marshal(v.s)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// ResultSet is the ordered collection of records accumulated across pages.
type ResultSet []Record

// Columns returns every field name present in at least one record, in first-seen order.
func (rs ResultSet) Columns() []string {
	seen := make(map[string]struct{})
	var cols []string
	for _, rec := range rs {
		for _, key := range rec.keys {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			cols = append(cols, key)
		}
	}
	return cols
}

// HasColumn reports whether any record carries field.
func (rs ResultSet) HasColumn(field string) bool {
	for _, rec := range rs {
		if rec.Has(field) {
			return true
		}
	}
	return false
}

// Values returns the present, non-null values of field in record order.
func (rs ResultSet) Values(field string) []Value {
	var out []Value
	for _, rec := range rs {
		v, ok := rec.Get(field)
		if !ok || v.IsNull() {
			continue
		}
		out = append(out, v)
	}
	return out
}
