// Package sheet holds the dynamically keyed tabular data produced from LLM output:
// rows whose columns keep their first-seen order, and ordered collections of sheets.
package sheet

import (
	"bytes"
	"encoding/json"
)

const (
	// SourceFileColumn tags every row with the upload it came from.
	SourceFileColumn = "Source File"
	// ErrorsSheet is reserved for per-file failures.
	ErrorsSheet = "Errors"
	// ErrorColumn carries the failure description in ErrorsSheet.
	ErrorColumn = "Error"
)

// Row is one spreadsheet row: column name -> scalar, in insertion order.
type Row struct {
	keys   []string
	values map[string]any
}

func NewRow() *Row {
	return &Row{values: make(map[string]any)}
}

// Set stores v under key. An existing key keeps its position.
func (r *Row) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

func (r *Row) Get(key string) (any, bool) {
	if r == nil || r.values == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the column names in order. The slice is a copy.
func (r *Row) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Clone returns a shallow copy; nested values are shared.
func (r *Row) Clone() *Row {
	c := &Row{keys: make([]string, len(r.keys)), values: make(map[string]any, len(r.values))}
	copy(c.keys, r.keys)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// SourceFile returns the provenance tag or "" when missing.
func (r *Row) SourceFile() string {
	v, _ := r.Get(SourceFileColumn)
	s, _ := v.(string)
	return s
}

// MarshalJSON writes the row as an object with keys in column order.
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
