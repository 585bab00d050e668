package analysis

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/internal/catalog"
	"github.com/opencivic/opendata-cli/internal/coords"
	"github.com/opencivic/opendata-cli/internal/export"
	"github.com/opencivic/opendata-cli/internal/geomap"
	"github.com/opencivic/opendata-cli/internal/loader"
	"github.com/opencivic/opendata-cli/internal/table"
)

// Paths tells the pipeline where artifacts go.
type Paths struct {
	DataDir    string
	OutputDir  string
	MapFile    string
	CSVFile    string
	XLSXFile   string
	FilterFile string
}

// Pipeline runs catalog resolution, loading, detection, rendering, and
// export for single datasets.
type Pipeline struct {
	catalog  *catalog.Client
	loader   *loader.Loader
	detector *coords.Detector
	renderer *geomap.Renderer
	paths    Paths
	filter   RowFilter
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithRowFilter enables the conditional subset export for datasets carrying
// the filter's columns.
func WithRowFilter(f RowFilter) PipelineOption {
	return func(p *Pipeline) {
		p.filter = f
	}
}

// NewPipeline creates a Pipeline with all collaborators.
func NewPipeline(cat *catalog.Client, ld *loader.Loader, det *coords.Detector, ren *geomap.Renderer, paths Paths, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		catalog:  cat,
		loader:   ld,
		detector: det,
		renderer: ren,
		paths:    paths,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AnalyzeDataset runs the full pipeline for one dataset. Per-dataset
// failures are folded into the Result; the returned error is non-nil only
// for fatal catalog failures. The returned layer (nil on failure or when no
// coordinates resolved) lets batch mode stack markers onto one map.
func (p *Pipeline) AnalyzeDataset(ctx context.Context, ds catalog.DatasetSummary) (Result, *geomap.Layer, error) {
	start := time.Now()
	log := zap.L().With(zap.String("dataset", ds.ID))
	log.Info("analysis: dataset started", zap.String("title", ds.Title))

	res := Result{DatasetID: ds.ID, Title: ds.Title}
	finish := func() Result {
		res.Duration = time.Since(start)
		return res
	}

	resources, err := p.catalog.Resolve(ctx, ds.ID)
	if err != nil {
		// Catalog failures establish no input set: fatal.
		return finish(), nil, err
	}

	if err := export.SaveJSON(p.snapshotPath(ds.ID), resources); err != nil {
		log.Warn("analysis: metadata snapshot failed", zap.Error(err))
	}

	if len(resources) == 0 {
		res.Reason = ReasonNoUsableResource
		res.Error = "dataset has no CSV or JSON resource"
		log.Info("analysis: no usable resource")
		return finish(), nil, nil
	}

	t, err := p.loadFirstUsable(ctx, resources, log)
	if err != nil {
		res.Reason = failureReason(err)
		res.Error = err.Error()
		return finish(), nil, nil
	}
	res.RowCount = t.RowCount()
	res.Summary = Summarize(t)

	res.CSVPath = filepath.Join(p.paths.OutputDir, p.datasetFile(ds.ID, p.paths.CSVFile))
	if err := export.WriteCSV(res.CSVPath, t); err != nil {
		log.Warn("analysis: csv export failed", zap.Error(err))
		res.CSVPath = ""
	}
	res.XLSXPath = filepath.Join(p.paths.OutputDir, p.datasetFile(ds.ID, p.paths.XLSXFile))
	if err := export.WriteXLSX(res.XLSXPath, t); err != nil {
		log.Warn("analysis: xlsx export failed", zap.Error(err))
		res.XLSXPath = ""
	}

	if filtered, ok := p.filter.Apply(t); ok {
		res.FilteredRows = filtered.RowCount()
		if res.FilteredRows > 0 {
			res.FilteredPath = filepath.Join(p.paths.OutputDir, p.datasetFile(ds.ID, p.filterFile()))
			if err := export.WriteXLSX(res.FilteredPath, filtered); err != nil {
				log.Warn("analysis: filtered export failed", zap.Error(err))
				res.FilteredPath = ""
			}
		} else {
			log.Info("analysis: no rows match the filter criteria")
		}
	}

	binding := p.detector.Detect(t)
	layer, err := p.renderer.Collect(t, binding, layerLabel(ds))
	if err != nil {
		// Tabular output above still stands; only the map is missing.
		res.Reason = failureReason(err)
		res.Error = err.Error()
		return finish(), nil, nil
	}

	res.ValidPoints = len(layer.Points)
	res.SkippedRows = layer.Skipped

	if res.ValidPoints == 0 {
		res.Reason = ReasonNoValidPoints
		res.Error = "coordinate columns resolved but no row validated"
		return finish(), nil, nil
	}

	res.Succeeded = true
	log.Info("analysis: dataset complete",
		zap.Int("rows", res.RowCount),
		zap.Int("valid_points", res.ValidPoints),
		zap.Int("skipped", res.SkippedRows),
	)
	return finish(), layer, nil
}

// loadFirstUsable tries resources in catalog order, CSV before JSON, and
// returns the first table that parses. The last error stands when all fail.
func (p *Pipeline) loadFirstUsable(ctx context.Context, resources []catalog.Resource, log *zap.Logger) (*table.Table, error) {
	ordered := make([]catalog.Resource, 0, len(resources))
	for _, r := range resources {
		if r.Format == "csv" {
			ordered = append(ordered, r)
		}
	}
	for _, r := range resources {
		if r.Format != "csv" {
			ordered = append(ordered, r)
		}
	}

	var lastErr error
	for _, r := range ordered {
		t, err := p.loader.Load(ctx, r)
		if err == nil {
			return t, nil
		}
		log.Debug("analysis: resource failed, trying next",
			zap.String("resource", r.ID),
			zap.Error(err),
		)
		lastErr = err
	}
	return nil, lastErr
}

// MapPath returns the map artifact path for this pipeline's output dir.
func (p *Pipeline) MapPath() string {
	return filepath.Join(p.paths.OutputDir, p.paths.MapFile)
}

// Renderer exposes the renderer for batch-mode map assembly.
func (p *Pipeline) Renderer() *geomap.Renderer {
	return p.renderer
}

func (p *Pipeline) snapshotPath(datasetID string) string {
	return filepath.Join(p.paths.DataDir, fmt.Sprintf("dataset-%s.json", datasetID))
}

func (p *Pipeline) filterFile() string {
	if p.paths.FilterFile != "" {
		return p.paths.FilterFile
	}
	return "condizioni.xlsx"
}

// datasetFile prefixes per-dataset exports so batch outputs don't collide.
func (p *Pipeline) datasetFile(datasetID, base string) string {
	return fmt.Sprintf("%s-%s", datasetID, base)
}

func layerLabel(ds catalog.DatasetSummary) string {
	if ds.Title != "" {
		return ds.Title
	}
	return ds.ID
}
