package loader

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/opencivic/opendata-cli/internal/table"
)

// jsonParser parses a JSON document into a table. Accepted shapes:
// an array of objects, or a single object holding exactly one top-level
// array field (the catalog wraps record lists that way).
type jsonParser struct{}

func (p jsonParser) Name() string { return "json" }

func (p jsonParser) Parse(text string) (*table.Table, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "load: parse json")
	}

	records, err := recordSequence(doc)
	if err != nil {
		return nil, err
	}

	return recordsToTable(records)
}

// recordSequence extracts the row sequence from a decoded document.
func recordSequence(doc any) ([]map[string]any, error) {
	switch v := doc.(type) {
	case []any:
		return objectSlice(v)
	case map[string]any:
		var seq []any
		found := 0
		for _, value := range v {
			if arr, ok := value.([]any); ok {
				seq = arr
				found++
			}
		}
		if found != 1 {
			return nil, eris.Wrapf(ErrUnsupportedFormat, "load: json object has %d array fields, want exactly 1", found)
		}
		return objectSlice(seq)
	default:
		return nil, eris.Wrap(ErrUnsupportedFormat, "load: json document is neither array nor object")
	}
}

// objectSlice asserts every element is an object.
func objectSlice(seq []any) ([]map[string]any, error) {
	records := make([]map[string]any, 0, len(seq))
	for i, el := range seq {
		obj, ok := el.(map[string]any)
		if !ok {
			return nil, eris.Wrapf(ErrUnsupportedFormat, "load: json element %d is not an object", i)
		}
		records = append(records, obj)
	}
	if len(records) == 0 {
		return nil, eris.Wrap(ErrUnsupportedFormat, "load: json sequence is empty")
	}
	return records, nil
}

// recordsToTable builds a table over the sorted union of record keys. JSON
// objects carry no field order, so sorting keeps the column order stable
// across loads. Keys missing from a record become absent cells; JSON null
// does too.
func recordsToTable(records []map[string]any) (*table.Table, error) {
	keySet := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			keySet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(keySet))
	for k := range keySet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	t := table.New(columns)
	for _, rec := range records {
		row := make(table.Row, len(columns))
		for i, col := range columns {
			value, ok := rec[col]
			if !ok || value == nil {
				row[i] = table.Absent
				continue
			}
			row[i] = table.Cell{Value: jsonScalar(value), Present: true}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// jsonScalar renders a decoded JSON value as cell text.
func jsonScalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		// Nested arrays/objects are kept as their JSON text so no data is
		// silently dropped.
		raw, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}
