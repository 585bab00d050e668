package loader

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/opencivic/opendata-cli/internal/table"
)

// delimiterCandidates is the sniffing priority order.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// csvParser parses delimiter-separated text, sniffing the delimiter from a
// sample prefix.
type csvParser struct {
	sampleRows int
}

func (p csvParser) Name() string { return "csv" }

func (p csvParser) Parse(text string) (*table.Table, error) {
	delim, err := sniffDelimiter(text, p.sampleRows)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // short rows become absent cells

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "load: read csv header")
	}

	t := table.New(header)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "load: read csv row")
		}
		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}
		t.AppendRow(record)
	}

	return t, nil
}

// sniffDelimiter tries each candidate in priority order against the first
// sampleRows non-empty lines. A candidate qualifies when every sampled line
// parses to the same column count and that count is greater than one.
func sniffDelimiter(text string, sampleRows int) (rune, error) {
	if sampleRows <= 0 {
		sampleRows = 10
	}
	sample := samplePrefix(text, sampleRows)
	if sample == "" {
		return 0, eris.Wrap(ErrUnsupportedFormat, "load: empty content")
	}

	for _, delim := range delimiterCandidates {
		if columns := consistentColumns(sample, delim); columns > 1 {
			return delim, nil
		}
	}
	return 0, eris.Wrap(ErrUnsupportedFormat, "load: no delimiter yields a consistent multi-column table")
}

// samplePrefix returns the first n non-empty lines joined back together.
func samplePrefix(text string, n int) string {
	var lines []string
	for len(text) > 0 {
		var line string
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i+1], text[i+1:]
		} else {
			line, text = text, ""
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
		if len(lines) == n {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// consistentColumns parses the sample with the given delimiter and returns
// the shared column count, or 0 when rows disagree or parsing fails.
func consistentColumns(sample string, delim rune) int {
	reader := csv.NewReader(strings.NewReader(sample))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	columns := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0
		}
		if columns == 0 {
			columns = len(record)
			continue
		}
		if len(record) != columns {
			return 0
		}
	}
	return columns
}
