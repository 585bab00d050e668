package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opencivic/opendata-cli/internal/export"
)

var searchQuery string

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the catalog for datasets matching a keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat := initCatalog()
		summaries, err := cat.Search(ctx, searchQuery)
		if err != nil {
			return err
		}

		if err := export.SaveJSON(filepath.Join(cfg.Output.DataDir, "search.json"), summaries); err != nil {
			return err
		}

		if len(summaries) == 0 {
			fmt.Fprintf(os.Stderr, "No datasets found for %q.\n", searchQuery)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tORGANIZATION\tSCORE")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\n", s.ID, s.Title, s.Organization, s.Score)
		}
		return w.Flush()
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchQuery, "query", "", "search keyword (required)")
	_ = searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}
