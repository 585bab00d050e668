// Package table holds the row-oriented table model produced by the loader.
package table

import "strings"

// Cell is one table value. Present is false for cells the source row never
// supplied; an absent cell is distinct from an empty string.
type Cell struct {
	Value   string
	Present bool
}

// Absent is the marker cell for missing values.
var Absent = Cell{}

// Row is an ordered sequence of cells matching the table's column order.
type Row []Cell

// Table is a parsed tabular resource. Column names keep their original case
// for display; lookups are case-insensitive.
type Table struct {
	Columns []string
	Rows    []Row

	// Truncated counts values dropped because their source row was wider
	// than the header.
	Truncated int

	index map[string]int
}

// New creates a Table with the given column names. Names are trimmed; when
// two columns collide case-insensitively, lookups resolve to the first.
func New(columns []string) *Table {
	t := &Table{
		Columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		name := strings.TrimSpace(c)
		t.Columns[i] = name
		key := strings.ToLower(name)
		if _, ok := t.index[key]; !ok {
			t.index[key] = i
		}
	}
	return t
}

// AppendRow adds a row, padding missing trailing cells with the absent
// marker. Values beyond the column count are dropped and tallied in
// Truncated.
func (t *Table) AppendRow(values []string) {
	row := make(Row, len(t.Columns))
	for i := range t.Columns {
		if i < len(values) {
			row[i] = Cell{Value: values[i], Present: true}
		} else {
			row[i] = Absent
		}
	}
	if extra := len(values) - len(t.Columns); extra > 0 {
		t.Truncated += extra
	}
	t.Rows = append(t.Rows, row)
}

// ColumnIndex returns the position of the named column, case-insensitively.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// Value returns the cell value at the given row for the named column.
// The second result is false when the column is unknown or the cell absent.
func (t *Table) Value(rowIdx int, column string) (string, bool) {
	i, ok := t.ColumnIndex(column)
	if !ok || rowIdx < 0 || rowIdx >= len(t.Rows) {
		return "", false
	}
	cell := t.Rows[rowIdx][i]
	if !cell.Present {
		return "", false
	}
	return cell.Value, true
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// Deduplicate removes rows whose every cell equals an earlier row's,
// absent markers included. First occurrence wins. Returns how many rows
// were dropped.
func (t *Table) Deduplicate() int {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	dropped := 0
	for _, row := range t.Rows {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	t.Rows = kept
	return dropped
}

// rowKey builds a collision-safe identity key for a row. The field separator
// and the absent sentinel use bytes that cannot appear in parsed cell text
// boundaries together.
func rowKey(row Row) string {
	var sb strings.Builder
	for _, cell := range row {
		if cell.Present {
			sb.WriteByte(0x01)
			sb.WriteString(cell.Value)
		} else {
			sb.WriteByte(0x02)
		}
		sb.WriteByte(0x00)
	}
	return sb.String()
}
