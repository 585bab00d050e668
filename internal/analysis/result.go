// Package analysis drives the per-dataset pipeline and aggregates results
// across a search.
package analysis

import (
	"errors"
	"time"

	"github.com/opencivic/opendata-cli/internal/catalog"
	"github.com/opencivic/opendata-cli/internal/geomap"
	"github.com/opencivic/opendata-cli/internal/loader"
)

// FailureReason classifies why a single dataset produced no (or partial)
// output. Per-dataset failures never abort the run.
type FailureReason string

const (
	ReasonNone              FailureReason = ""
	ReasonNoUsableResource  FailureReason = "no_usable_resource"
	ReasonFetchError        FailureReason = "fetch_error"
	ReasonUnsupportedFormat FailureReason = "unsupported_format"
	ReasonNoCoordinates     FailureReason = "no_coordinates"
	ReasonNoValidPoints     FailureReason = "no_valid_points"
)

// Result is the terminal artifact for one dataset. Succeeded distinguishes
// success-with-data from failure-with-reason; the orchestrator continues
// past failures either way.
type Result struct {
	DatasetID    string        `json:"dataset_id"`
	Title        string        `json:"title,omitempty"`
	Succeeded    bool          `json:"succeeded"`
	Reason       FailureReason `json:"reason,omitempty"`
	Error        string        `json:"error,omitempty"`
	RowCount     int           `json:"row_count"`
	ValidPoints  int           `json:"valid_points"`
	SkippedRows  int           `json:"skipped_rows"`
	Summary      *TableSummary `json:"summary,omitempty"`
	FilteredRows int           `json:"filtered_rows,omitempty"`
	CSVPath      string        `json:"csv_path,omitempty"`
	XLSXPath     string        `json:"xlsx_path,omitempty"`
	FilteredPath string        `json:"filtered_path,omitempty"`
	MapPath      string        `json:"map_path,omitempty"`
	Duration     time.Duration `json:"duration_ns"`
}

// BatchResult aggregates one orchestrator run.
type BatchResult struct {
	Query       string   `json:"query"`
	Mode        string   `json:"mode"`
	Results     []Result `json:"results"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	ValidPoints int      `json:"valid_points"`
	SkippedRows int      `json:"skipped_rows"`
	MapPath     string   `json:"map_path,omitempty"`
}

// failureReason maps a pipeline error to its taxonomy bucket.
func failureReason(err error) FailureReason {
	switch {
	case errors.Is(err, loader.ErrFetch):
		return ReasonFetchError
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return ReasonUnsupportedFormat
	case errors.Is(err, geomap.ErrNoCoordinates):
		return ReasonNoCoordinates
	case errors.Is(err, geomap.ErrNoValidPoints):
		return ReasonNoValidPoints
	default:
		return ReasonFetchError
	}
}

// IsFatal reports whether an error must abort the whole run: the input set
// itself could not be established.
func IsFatal(err error) bool {
	return errors.Is(err, catalog.ErrInvalidQuery) || errors.Is(err, catalog.ErrCatalogUnavailable)
}
