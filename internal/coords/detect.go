// Package coords resolves which table columns carry latitude and longitude.
package coords

import (
	"github.com/opencivic/opendata-cli/internal/table"
)

// Binding names the resolved coordinate columns of a table. The zero value
// is unresolved. A binding is derived once per table, never per row.
type Binding struct {
	LatColumn string `json:"lat_column,omitempty"`
	LonColumn string `json:"lon_column,omitempty"`
}

// Resolved reports whether both axes found a column.
func (b Binding) Resolved() bool {
	return b.LatColumn != "" && b.LonColumn != ""
}

// Detector matches column names against ordered synonym lists.
type Detector struct {
	latSynonyms []string
	lonSynonyms []string
}

// NewDetector creates a Detector with the given ordered synonym lists.
func NewDetector(latSynonyms, lonSynonyms []string) *Detector {
	return &Detector{latSynonyms: latSynonyms, lonSynonyms: lonSynonyms}
}

// Detect scans each synonym list in order and binds the first synonym
// present among the table's columns, case-insensitively. Synonym-list order
// is the sole tie-break; column order and cell contents never matter. Either
// axis missing leaves the binding unresolved.
func (d *Detector) Detect(t *table.Table) Binding {
	var b Binding
	if col, ok := firstMatch(t, d.latSynonyms); ok {
		b.LatColumn = col
	}
	if col, ok := firstMatch(t, d.lonSynonyms); ok {
		b.LonColumn = col
	}
	if !b.Resolved() {
		return Binding{}
	}
	return b
}

// firstMatch returns the display name of the first synonym present.
func firstMatch(t *table.Table, synonyms []string) (string, bool) {
	for _, syn := range synonyms {
		if i, ok := t.ColumnIndex(syn); ok {
			return t.Columns[i], true
		}
	}
	return "", false
}
