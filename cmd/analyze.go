package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencivic/opendata-cli/internal/analysis"
)

var (
	analyzeQuery   string
	analyzeDataset string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a single dataset: download, detect coordinates, map, export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		cat := initCatalog()
		orch := analysis.NewOrchestrator(cat, initPipeline(cat), cfg.Output.DataDir,
			analysis.WithRecorder(st),
		)

		batch, err := orch.Run(ctx, analyzeQuery, analysis.Mode{DatasetID: analyzeDataset})
		if err != nil {
			return err
		}

		res := batch.Results[0]
		zap.L().Info("analysis complete",
			zap.String("dataset", res.DatasetID),
			zap.Bool("succeeded", res.Succeeded),
			zap.Int("valid_points", res.ValidPoints),
			zap.Int("skipped_rows", res.SkippedRows),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeQuery, "query", "", "search keyword (required)")
	analyzeCmd.Flags().StringVar(&analyzeDataset, "dataset", "", "dataset id to analyze (required)")
	_ = analyzeCmd.MarkFlagRequired("query")
	_ = analyzeCmd.MarkFlagRequired("dataset")
	rootCmd.AddCommand(analyzeCmd)
}
