package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/internal/analysis"
)

var (
	batchQuery       string
	batchLimit       int
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze every dataset matching a search keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.Concurrency
		}
		limit := batchLimit
		if limit == 0 {
			limit = cfg.Batch.Limit
		}

		cat := initCatalog()
		orch := analysis.NewOrchestrator(cat, initPipeline(cat), cfg.Output.DataDir,
			analysis.WithConcurrency(concurrency),
			analysis.WithLimit(limit),
			analysis.WithRecorder(st),
			analysis.WithProgress(func(completed, total int, res analysis.Result) {
				status := "ok"
				if !res.Succeeded {
					status = string(res.Reason)
				}
				fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s\n", completed, total, res.DatasetID, status)
			}),
		)

		batch, err := orch.Run(ctx, batchQuery, analysis.Mode{All: true})
		if err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int("succeeded", batch.Succeeded),
			zap.Int("failed", batch.Failed),
			zap.Int("valid_points", batch.ValidPoints),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchQuery, "query", "", "search keyword (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max datasets to process (default from config)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel dataset pipelines (default from config)")
	_ = batchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(batchCmd)
}
