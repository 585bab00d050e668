package analysis

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/opencivic/opendata-cli/internal/catalog"
	"github.com/opencivic/opendata-cli/internal/export"
	"github.com/opencivic/opendata-cli/internal/geomap"
)

// Mode selects what a run covers: one dataset or every search match.
type Mode struct {
	All       bool
	DatasetID string
}

// ProgressFunc is called after each dataset finishes, from at most one
// goroutine at a time.
type ProgressFunc func(completed, total int, res Result)

// Recorder persists run history. Implemented by the store package.
type Recorder interface {
	CreateRun(ctx context.Context, query, mode string) (string, error)
	SaveResult(ctx context.Context, runID string, res Result) error
	FinishRun(ctx context.Context, runID string, succeeded bool) error
}

// Orchestrator drives the pipeline over one or many datasets.
type Orchestrator struct {
	catalog     *catalog.Client
	pipeline    *Pipeline
	concurrency int
	limit       int
	dataDir     string
	recorder    Recorder
	progress    ProgressFunc
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds how many dataset pipelines run at once. Defaults
// to 1 so the catalog's rate expectations hold even without tuning.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLimit caps how many search matches a batch run processes.
func WithLimit(n int) Option {
	return func(o *Orchestrator) {
		o.limit = n
	}
}

// WithRecorder persists run history through the given recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithProgress reports per-dataset completion.
func WithProgress(fn ProgressFunc) Option {
	return func(o *Orchestrator) {
		o.progress = fn
	}
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(cat *catalog.Client, p *Pipeline, dataDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:     cat,
		pipeline:    p,
		concurrency: 1,
		dataDir:     dataDir,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run searches the catalog and analyzes either the selected dataset or all
// matches. Per-dataset failures land in their Result; only InvalidQuery and
// CatalogUnavailable abort the run. After a fatal error no new dataset
// pipelines start, but in-flight ones complete.
func (o *Orchestrator) Run(ctx context.Context, query string, mode Mode) (*BatchResult, error) {
	summaries, err := o.catalog.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	if err := export.SaveJSON(filepath.Join(o.dataDir, "search.json"), summaries); err != nil {
		zap.L().Warn("batch: search snapshot failed", zap.Error(err))
	}

	targets, err := o.selectTargets(summaries, mode)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{Query: query, Mode: modeName(mode)}

	runID := o.recordStart(ctx, query, batch.Mode)

	results, layers, fatalErr := o.processAll(ctx, targets, runID)
	if fatalErr != nil {
		o.recordFinish(ctx, runID, false)
		return nil, fatalErr
	}

	batch.Results = results
	mapPath := o.writeCombinedMap(layers)
	batch.MapPath = mapPath

	for i := range batch.Results {
		r := &batch.Results[i]
		if r.Succeeded {
			batch.Succeeded++
			r.MapPath = mapPath
		} else {
			batch.Failed++
		}
		batch.ValidPoints += r.ValidPoints
		batch.SkippedRows += r.SkippedRows
	}

	o.recordFinish(ctx, runID, batch.Failed == 0)

	zap.L().Info("batch: run complete",
		zap.String("query", query),
		zap.String("mode", batch.Mode),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed),
		zap.Int("valid_points", batch.ValidPoints),
		zap.Int("skipped_rows", batch.SkippedRows),
	)
	return batch, nil
}

// selectTargets narrows search matches to what the mode covers.
func (o *Orchestrator) selectTargets(summaries []catalog.DatasetSummary, mode Mode) ([]catalog.DatasetSummary, error) {
	if !mode.All {
		if mode.DatasetID == "" {
			return nil, eris.Wrap(catalog.ErrInvalidQuery, "batch: single mode needs a dataset id")
		}
		for _, s := range summaries {
			if s.ID == mode.DatasetID {
				return []catalog.DatasetSummary{s}, nil
			}
		}
		// The id may be valid even when the keyword search missed it; the
		// resolver will tell.
		return []catalog.DatasetSummary{{ID: mode.DatasetID}}, nil
	}

	if o.limit > 0 && len(summaries) > o.limit {
		summaries = summaries[:o.limit]
	}
	return summaries, nil
}

// processAll runs dataset pipelines with bounded parallelism. It returns
// results in target order (skipped targets excluded) and the marker layers
// of successful datasets.
func (o *Orchestrator) processAll(ctx context.Context, targets []catalog.DatasetSummary, runID string) ([]Result, []*geomap.Layer, error) {
	var (
		mu        sync.Mutex
		completed int
		fatalErr  error
	)
	slotResults := make([]*Result, len(targets))
	slotLayers := make([]*geomap.Layer, len(targets))

	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for i, ds := range targets {
		i, ds := i, ds
		mu.Lock()
		stop := fatalErr != nil
		mu.Unlock()
		if stop {
			break
		}

		g.Go(func() error {
			res, layer, err := o.pipeline.AnalyzeDataset(ctx, ds)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if fatalErr == nil {
					fatalErr = err
				}
				return nil
			}
			slotResults[i] = &res
			slotLayers[i] = layer
			completed++
			if o.progress != nil {
				o.progress(completed, len(targets), res)
			}
			if o.recorder != nil && runID != "" {
				if saveErr := o.recorder.SaveResult(ctx, runID, res); saveErr != nil {
					zap.L().Warn("batch: save result failed", zap.Error(saveErr))
				}
			}
			return nil
		})
	}

	_ = g.Wait()

	if fatalErr != nil {
		return nil, nil, fatalErr
	}

	var results []Result
	var layers []*geomap.Layer
	for i := range slotResults {
		if slotResults[i] == nil {
			continue
		}
		results = append(results, *slotResults[i])
		if slotLayers[i] != nil {
			layers = append(layers, slotLayers[i])
		}
	}
	return results, layers, nil
}

// writeCombinedMap layers every successful dataset's markers onto one
// artifact. Returns "" when no dataset produced a marker.
func (o *Orchestrator) writeCombinedMap(layers []*geomap.Layer) string {
	if len(layers) == 0 {
		return ""
	}
	path := o.pipeline.MapPath()
	if err := o.pipeline.Renderer().WriteMap(path, layers); err != nil {
		zap.L().Error("batch: map write failed", zap.Error(err))
		return ""
	}
	return path
}

func (o *Orchestrator) recordStart(ctx context.Context, query, mode string) string {
	if o.recorder == nil {
		return ""
	}
	runID, err := o.recorder.CreateRun(ctx, query, mode)
	if err != nil {
		zap.L().Warn("batch: create run record failed", zap.Error(err))
		return ""
	}
	return runID
}

func (o *Orchestrator) recordFinish(ctx context.Context, runID string, succeeded bool) {
	if o.recorder == nil || runID == "" {
		return
	}
	if err := o.recorder.FinishRun(ctx, runID, succeeded); err != nil {
		zap.L().Warn("batch: finish run record failed", zap.Error(err))
	}
}

func modeName(mode Mode) string {
	if mode.All {
		return "all-matches"
	}
	return "single"
}
