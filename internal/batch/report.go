package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ReportConfig records how a batch was run
type ReportConfig struct {
	Manifest    string `yaml:"manifest"`
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Concurrency int    `yaml:"concurrency"`
	Timestamp   string `yaml:"timestamp"`
}

// ReportResult is one converted entry
type ReportResult struct {
	Source          string   `yaml:"source"`
	Language        string   `yaml:"language"`
	ID              string   `yaml:"id,omitempty"`
	Title           string   `yaml:"title,omitempty"`
	MarkdownPath    string   `yaml:"markdownpath,omitempty"`
	Images          int      `yaml:"images"`
	Tags            []string `yaml:"tags,omitempty"`
	DurationSeconds float64  `yaml:"durationseconds"`
	Error           string   `yaml:"error,omitempty"`
}

// Summary aggregates a batch
type Summary struct {
	Total          int     `yaml:"total"`
	Succeeded      int     `yaml:"succeeded"`
	Failed         int     `yaml:"failed"`
	AverageSeconds float64 `yaml:"averageseconds"`
	MedianSeconds  float64 `yaml:"medianseconds"`
	TotalImages    int     `yaml:"totalimages"`
}

// Report is the YAML document written after a batch
type Report struct {
	Config  ReportConfig   `yaml:"config"`
	Summary Summary        `yaml:"summary"`
	Results []ReportResult `yaml:"results"`
}

// BuildReport summarizes results. Durations of failed entries are excluded
// from the averages.
func BuildReport(cfg ReportConfig, results []Result) *Report {
	report := &Report{
		Config:  cfg,
		Results: make([]ReportResult, 0, len(results)),
	}

	var durations []float64
	for _, r := range results {
		rr := ReportResult{
			Source:          r.Entry.Source,
			DurationSeconds: r.Duration.Seconds(),
		}
		if r.Response != nil {
			rr.Language = r.Response.Language
			rr.ID = r.Response.ID
			rr.Title = r.Response.Title
			rr.MarkdownPath = r.Response.MarkdownPath
			rr.Images = len(r.Response.Images)
			rr.Tags = r.Response.Tags
			rr.Error = r.Response.Error
		} else {
			rr.Error = "no response"
		}
		report.Results = append(report.Results, rr)

		report.Summary.Total++
		if r.Failed() {
			report.Summary.Failed++
			continue
		}
		report.Summary.Succeeded++
		report.Summary.TotalImages += rr.Images
		durations = append(durations, rr.DurationSeconds)
	}

	if len(durations) > 0 {
		var total float64
		for _, d := range durations {
			total += d
		}
		report.Summary.AverageSeconds = total / float64(len(durations))

		sort.Float64s(durations)
		mid := len(durations) / 2
		if len(durations)%2 == 0 {
			report.Summary.MedianSeconds = (durations[mid-1] + durations[mid]) / 2
		} else {
			report.Summary.MedianSeconds = durations[mid]
		}
	}

	return report
}

// Save writes the report as YAML to path, creating its directory.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

// DefaultReportPath names a timestamped report under dir.
func DefaultReportPath(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("batch-%s.yaml", now.Format("2006-01-02_15-04-05")))
}

// PrintSummary writes a human-readable summary.
func (r *Report) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Batch Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Total Papers:       %d\n", r.Summary.Total)
	fmt.Fprintf(w, "Converted:          %d\n", r.Summary.Succeeded)
	fmt.Fprintf(w, "Failed:             %d\n", r.Summary.Failed)
	fmt.Fprintf(w, "Figures Placed:     %d\n", r.Summary.TotalImages)
	fmt.Fprintf(w, "Average Time:       %.1fs\n", r.Summary.AverageSeconds)
	fmt.Fprintf(w, "Median Time:        %.1fs\n", r.Summary.MedianSeconds)

	var failed []ReportResult
	for _, rr := range r.Results {
		if rr.Error != "" {
			failed = append(failed, rr)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failures:")
		for _, rr := range failed {
			fmt.Fprintf(w, "  %s: %s\n", rr.Source, rr.Error)
		}
	}
	fmt.Fprintln(w, "========================================")
}
