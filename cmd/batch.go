package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/paper2blog/internal/batch"
	"github.com/spf13/cobra"
)

func newBatchCmd() *cobra.Command {
	var (
		manifest    string
		concurrency int
		limit       int
		reportPath  string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Convert every paper listed in a manifest",
		Long: `Converts the papers listed in a JSONL or Parquet manifest. Each entry has a
"source" (PDF path or URL) and an optional "language". Relative paths are
resolved against the manifest's directory.

A YAML report with one result per entry is written when the run finishes.`,
		Example: `  # Convert a JSONL manifest two papers at a time
  paper2blog batch --manifest papers.jsonl --concurrency 2

  # Convert the first 10 rows of a Parquet manifest
  paper2blog batch --manifest papers.parquet --limit 10 --report report.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := batch.NewLoader(manifest).LoadSample(limit)
			if err != nil {
				return fmt.Errorf("failed to load manifest: %w", err)
			}
			if len(entries) == 0 {
				return fmt.Errorf("manifest %s lists no papers", manifest)
			}

			a, err := newApp()
			if err != nil {
				return err
			}

			runner := batch.NewRunner(a.pipeline, concurrency, a.cfg.TargetLanguage)
			results := runner.Run(cmd.Context(), entries)

			report := batch.BuildReport(batch.ReportConfig{
				Manifest:    manifest,
				Provider:    a.cfg.Provider,
				Model:       a.cfg.Model,
				Concurrency: concurrency,
				Timestamp:   time.Now().Format(time.RFC3339),
			}, results)

			if reportPath == "" {
				reportPath = batch.DefaultReportPath(filepath.Join(a.cfg.DataDir, "reports"), time.Now())
			}
			if err := report.Save(reportPath); err != nil {
				return err
			}
			slog.Info("Batch report saved", "path", reportPath)

			report.PrintSummary(cmd.OutOrStdout())
			if report.Summary.Succeeded == 0 {
				return fmt.Errorf("no paper could be converted")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Path to a .jsonl or .parquet manifest")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 1, "Number of papers converted at once")
	cmd.Flags().IntVar(&limit, "limit", 0, "Convert at most this many entries (0 for all)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Report path (defaults to DATA_DIR/reports/batch-<timestamp>.yaml)")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}
