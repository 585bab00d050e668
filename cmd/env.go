package main

import (
	"time"

	"github.com/opencivic/opendata-cli/internal/analysis"
	"github.com/opencivic/opendata-cli/internal/catalog"
	"github.com/opencivic/opendata-cli/internal/coords"
	"github.com/opencivic/opendata-cli/internal/fetcher"
	"github.com/opencivic/opendata-cli/internal/geomap"
	"github.com/opencivic/opendata-cli/internal/loader"
	"github.com/opencivic/opendata-cli/pkg/ckan"
)

// initCatalog builds the catalog client from config.
func initCatalog() *catalog.Client {
	ckanClient := ckan.NewClient(
		ckan.WithBaseURL(cfg.Catalog.BaseURL),
		ckan.WithUserAgent(cfg.Catalog.UserAgent),
		ckan.WithRateLimit(cfg.Catalog.RatePerSec),
	)
	return catalog.New(ckanClient, cfg.Catalog.SearchRows)
}

// initPipeline wires the per-dataset pipeline from config.
func initPipeline(cat *catalog.Client) *analysis.Pipeline {
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: cfg.Fetch.MaxRetries,
		RatePerSec: cfg.Fetch.RatePerSec,
	})
	ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{
		Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
	})
	dispatcher := fetcher.NewDispatcher(httpFetcher, ftpFetcher)

	ld := loader.New(dispatcher, loader.Options{SampleRows: cfg.Loader.SampleRows})
	det := coords.NewDetector(cfg.Detect.LatSynonyms, cfg.Detect.LonSynonyms)
	ren := geomap.New(cfg.Map.Zoom, cfg.Map.Title)

	paths := analysis.Paths{
		DataDir:    cfg.Output.DataDir,
		OutputDir:  cfg.Output.OutputDir,
		MapFile:    cfg.Output.MapFile,
		CSVFile:    cfg.Output.CSVFile,
		XLSXFile:   cfg.Output.XLSXFile,
		FilterFile: cfg.Filter.File,
	}
	filter := analysis.RowFilter{
		Column:      cfg.Filter.Column,
		Value:       cfg.Filter.Value,
		CountColumn: cfg.Filter.CountColumn,
		MinCount:    cfg.Filter.MinCount,
	}
	return analysis.NewPipeline(cat, ld, det, ren, paths, analysis.WithRowFilter(filter))
}
