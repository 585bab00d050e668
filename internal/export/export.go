// Package export writes snapshots and cleaned tables to disk.
package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/internal/table"
)

// SaveJSON writes data as pretty-printed JSON, creating the directory if
// needed. Used for catalog search and dataset metadata snapshots.
func SaveJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}

	raw, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return eris.Wrapf(err, "export: marshal %s", path)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}

	zap.L().Debug("export: json saved", zap.String("path", path))
	return nil
}

// WriteCSV writes the cleaned table as comma-separated values. Absent cells
// become empty fields.
func WriteCSV(path string, t *table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			if cell.Present {
				record[i] = cell.Value
			}
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "export: flush %s", path)
	}

	zap.L().Info("export: csv saved", zap.String("path", path), zap.Int("rows", t.RowCount()))
	return nil
}
