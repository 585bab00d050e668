package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrimsAndIndexesColumns(t *testing.T) {
	tbl := New([]string{" Latitudine ", "Longitudine", "Via"})

	assert.Equal(t, []string{"Latitudine", "Longitudine", "Via"}, tbl.Columns)

	idx, ok := tbl.ColumnIndex("latitudine")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = tbl.ColumnIndex("VIA")
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = tbl.ColumnIndex("missing")
	assert.False(t, ok)
}

func TestColumnIndexFirstDuplicateWins(t *testing.T) {
	tbl := New([]string{"id", "ID", "value"})

	idx, ok := tbl.ColumnIndex("id")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestAppendRowPadsShortRows(t *testing.T) {
	tbl := New([]string{"a", "b", "c"})
	tbl.AppendRow([]string{"1"})

	v, ok := tbl.Value(0, "a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = tbl.Value(0, "b")
	assert.False(t, ok)
	_, ok = tbl.Value(0, "c")
	assert.False(t, ok)
}

func TestAppendRowDropsExtraFields(t *testing.T) {
	tbl := New([]string{"a", "b"})
	tbl.AppendRow([]string{"1", "2", "3", "4"})

	require.Equal(t, 1, tbl.RowCount())
	assert.Len(t, tbl.Rows[0], 2)
}

func TestAppendRowCountsTruncatedValues(t *testing.T) {
	tbl := New([]string{"a", "b"})
	tbl.AppendRow([]string{"1", "2"})
	assert.Equal(t, 0, tbl.Truncated)

	tbl.AppendRow([]string{"1", "2", "3", "4"})
	assert.Equal(t, 2, tbl.Truncated)

	tbl.AppendRow([]string{"1", "2", "3"})
	assert.Equal(t, 3, tbl.Truncated)
}

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	tbl := New([]string{"a", "b"})
	tbl.AppendRow([]string{"1", "x"})
	tbl.AppendRow([]string{"2", "y"})
	tbl.AppendRow([]string{"1", "x"})
	tbl.AppendRow([]string{"1", "x"})

	removed := tbl.Deduplicate()
	assert.Equal(t, 2, removed)
	require.Equal(t, 2, tbl.RowCount())

	v, _ := tbl.Value(0, "a")
	assert.Equal(t, "1", v)
	v, _ = tbl.Value(1, "a")
	assert.Equal(t, "2", v)
}

func TestDeduplicateIdempotent(t *testing.T) {
	tbl := New([]string{"a"})
	tbl.AppendRow([]string{"1"})
	tbl.AppendRow([]string{"1"})

	assert.Equal(t, 1, tbl.Deduplicate())
	assert.Equal(t, 0, tbl.Deduplicate())
	assert.Equal(t, 1, tbl.RowCount())
}

func TestDeduplicateDistinguishesAbsentFromEmpty(t *testing.T) {
	tbl := New([]string{"a", "b"})
	// Present-but-empty second field.
	tbl.AppendRow([]string{"1", ""})
	// Absent second field.
	tbl.AppendRow([]string{"1"})

	assert.Equal(t, 0, tbl.Deduplicate())
	assert.Equal(t, 2, tbl.RowCount())
}

func TestValueOutOfRange(t *testing.T) {
	tbl := New([]string{"a"})
	tbl.AppendRow([]string{"1"})

	_, ok := tbl.Value(5, "a")
	assert.False(t, ok)
	_, ok = tbl.Value(-1, "a")
	assert.False(t, ok)
}
