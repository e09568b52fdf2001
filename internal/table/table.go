// Package table converts raw row records into a typed, column-oriented table.
//
// Each column is inferred independently as numeric, datetime, or categorical.
// Inference is all-or-nothing: a column is numeric only if every non-missing
// value parses as a float; otherwise the datetime parse is attempted the same
// way; otherwise the column keeps its raw values as categorical. Row
// identifiers are original input positions and survive any downstream
// row-filtering, so consumers can always report against the caller's rows.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
)

// Field is a single named value inside a Record.
type Field struct {
	Name  string
	Value any
}

// Record is one input row: an ordered list of field/value pairs. Order is
// preserved from the JSON object so that column order is first-seen order.
type Record struct {
	Fields []Field
}

// Get returns the value for a field name and whether it was present.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set appends or replaces a field value.
func (r *Record) Set(name string, value any) {
	for i, f := range r.Fields {
		if f.Name == name {
			r.Fields[i].Value = value
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// UnmarshalJSON decodes a JSON object while preserving key order.
// The default map decoding would lose it.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	r.Fields = r.Fields[:0]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record: expected string key, got %v", keyTok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		if n, ok := val.(json.Number); ok {
			f, err := n.Float64()
			if err != nil {
				return fmt.Errorf("record: field %q: %w", key, err)
			}
			val = f
		}
		r.Fields = append(r.Fields, Field{Name: key, Value: val})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the record as a JSON object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Column is a named, typed, row-aligned sequence of values.
// Exactly one of Floats/Times/Raw is populated, matching Kind.
// Missing is always row-aligned; a missing slot holds NaN / zero time / nil.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Times   []time.Time
	Raw     []any
	Missing []bool
}

// NonMissing returns the number of present values in the column.
func (c *Column) NonMissing() int {
	n := 0
	for _, m := range c.Missing {
		if !m {
			n++
		}
	}
	return n
}

// FloatValues returns the present numeric values with their original row
// identifiers, in row order. Only meaningful for numeric columns.
func (c *Column) FloatValues() (vals []float64, rows []int) {
	for i, m := range c.Missing {
		if m {
			continue
		}
		vals = append(vals, c.Floats[i])
		rows = append(rows, i)
	}
	return vals, rows
}

// Table is an ordered set of row-aligned columns. Row identifier i refers to
// the i-th record of the original input.
type Table struct {
	Columns []*Column
	Rows    int
}

// Empty reports whether the table has no rows or no columns.
func (t Table) Empty() bool {
	return t.Rows == 0 || len(t.Columns) == 0
}

// Column returns the column with the given name, or nil.
func (t Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// NumericColumns returns the numeric columns in table order.
func (t Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// DatetimeColumns returns the datetime columns in table order.
func (t Table) DatetimeColumns() []*Column {
	var out []*Column
	for _, c := range t.Columns {
		if c.Kind == KindDatetime {
			out = append(out, c)
		}
	}
	return out
}
