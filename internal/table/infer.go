package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Infer builds a typed Table from raw records. Column order is first-seen
// field order across all records; rows absent a field become missing values.
// Zero records yield an empty table.
func Infer(records []Record) Table {
	if len(records) == 0 {
		return Table{}
	}

	// Collect field names in first-seen order.
	var names []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, f := range rec.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				names = append(names, f.Name)
			}
		}
	}

	t := Table{Rows: len(records)}
	for _, name := range names {
		raw := make([]any, len(records))
		missing := make([]bool, len(records))
		for i, rec := range records {
			v, ok := rec.Get(name)
			if !ok || v == nil {
				missing[i] = true
				continue
			}
			raw[i] = v
		}
		t.Columns = append(t.Columns, inferColumn(name, raw, missing))
	}
	return t
}

// inferColumn types one column from its raw values. A failed parse never
// surfaces: the column falls through numeric → datetime → categorical.
func inferColumn(name string, raw []any, missing []bool) *Column {
	if floats, ok := parseAllFloats(raw, missing); ok {
		return &Column{Name: name, Kind: KindNumeric, Floats: floats, Missing: missing}
	}
	if times, ok := parseAllTimes(raw, missing); ok {
		return &Column{Name: name, Kind: KindDatetime, Times: times, Missing: missing}
	}
	return &Column{Name: name, Kind: KindCategorical, Raw: raw, Missing: missing}
}

// parseAllFloats succeeds only if every non-missing value is numeric.
// An all-missing column is not numeric.
func parseAllFloats(raw []any, missing []bool) ([]float64, bool) {
	floats := make([]float64, len(raw))
	have := false
	for i, v := range raw {
		if missing[i] {
			floats[i] = math.NaN()
			continue
		}
		f, ok := parseFloat(v)
		if !ok {
			return nil, false
		}
		floats[i] = f
		have = true
	}
	return floats, have
}

func parseFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		// Booleans and structured values are never numeric.
		return 0, false
	}
}

// parseAllTimes succeeds only if every non-missing value parses as a
// timestamp. Only strings are candidates.
func parseAllTimes(raw []any, missing []bool) ([]time.Time, bool) {
	times := make([]time.Time, len(raw))
	have := false
	for i, v := range raw {
		if missing[i] {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		t, ok := ParseTimestamp(s)
		if !ok {
			return nil, false
		}
		times[i] = t
		have = true
	}
	return times, have
}

// timestampLayouts covers the formats seen in typical uploaded datasets.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"2006-01",
}

// ParseTimestamp attempts a permissive, layout-list timestamp parse.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timestampLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
