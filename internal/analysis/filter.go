package analysis

import (
	"strconv"
	"strings"

	"github.com/opencivic/opendata-cli/internal/table"
)

// RowFilter selects the subset of rows matching one column exactly and
// exceeding a numeric threshold on another. The stock configuration targets
// road accidents under heavy traffic involving more than two vehicles, but
// both columns come from config.
type RowFilter struct {
	Column      string
	Value       string
	CountColumn string
	MinCount    float64
}

// Enabled reports whether both filter columns are configured.
func (f RowFilter) Enabled() bool {
	return f.Column != "" && f.CountColumn != ""
}

// Apply returns the matching rows as a new table over the source's columns.
// The second result is false when the filter is disabled or the table lacks
// either column; the dataset is then not suited to this analysis and no
// subset exists.
func (f RowFilter) Apply(t *table.Table) (*table.Table, bool) {
	if !f.Enabled() {
		return nil, false
	}
	condIdx, ok := t.ColumnIndex(f.Column)
	if !ok {
		return nil, false
	}
	countIdx, ok := t.ColumnIndex(f.CountColumn)
	if !ok {
		return nil, false
	}

	out := table.New(t.Columns)
	for _, row := range t.Rows {
		cond := row[condIdx]
		if !cond.Present || strings.TrimSpace(cond.Value) != f.Value {
			continue
		}
		count, ok := parseCount(row[countIdx])
		if !ok || count <= f.MinCount {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, true
}

// parseCount reads a numeric cell, accepting a decimal comma.
func parseCount(c table.Cell) (float64, bool) {
	if !c.Present {
		return 0, false
	}
	v := strings.TrimSpace(c.Value)
	if strings.Count(v, ",") == 1 && !strings.Contains(v, ".") {
		v = strings.Replace(v, ",", ".", 1)
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// TableSummary profiles a loaded table the way an analyst first inspects
// it: record count, column names, and per-column missing values.
type TableSummary struct {
	Records int            `json:"records"`
	Columns []string       `json:"columns"`
	Missing map[string]int `json:"missing"`
}

// Summarize builds the profile. A cell counts as missing when the source
// row never supplied it or supplied only whitespace.
func Summarize(t *table.Table) *TableSummary {
	s := &TableSummary{
		Records: t.RowCount(),
		Columns: append([]string(nil), t.Columns...),
		Missing: make(map[string]int, len(t.Columns)),
	}
	for _, c := range t.Columns {
		s.Missing[c] = 0
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if !cell.Present || strings.TrimSpace(cell.Value) == "" {
				s.Missing[t.Columns[i]]++
			}
		}
	}
	return s
}
