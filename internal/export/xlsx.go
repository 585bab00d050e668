package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/internal/table"
)

// WriteXLSX writes the cleaned table as a single-sheet spreadsheet. Absent
// cells become empty cells.
func WriteXLSX(path string, t *table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "export: create dir for %s", path)
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Dati")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range t.Columns {
		header.AddCell().Value = col
	}

	for _, row := range t.Rows {
		out := sheet.AddRow()
		for _, cell := range row {
			c := out.AddCell()
			if cell.Present {
				c.Value = cell.Value
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("export: xlsx saved", zap.String("path", path), zap.Int("rows", t.RowCount()))
	return nil
}
