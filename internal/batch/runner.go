package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/paper2blog/internal/blog"
	"github.com/lehigh-university-libraries/paper2blog/internal/models"
)

// Converter runs one paper to blog conversion.
type Converter interface {
	Convert(ctx context.Context, src blog.Source) *models.ConversionResponse
}

// Result is the outcome of one manifest entry
type Result struct {
	Entry    Entry
	Response *models.ConversionResponse
	Duration time.Duration
}

// Failed reports whether the entry produced no post.
func (r Result) Failed() bool {
	return r.Response == nil || r.Response.Error != ""
}

// Runner converts manifest entries with bounded concurrency
type Runner struct {
	converter       Converter
	concurrency     int
	defaultLanguage string
}

// NewRunner creates a runner; concurrency below 1 runs entries one at a time.
func NewRunner(converter Converter, concurrency int, defaultLanguage string) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{converter: converter, concurrency: concurrency, defaultLanguage: defaultLanguage}
}

// Run converts every entry and returns the results in manifest order.
// Entries not started before ctx is done are reported as failed.
func (r *Runner) Run(ctx context.Context, entries []Entry) []Result {
	slog.Info("Processing manifest", "entries", len(entries), "concurrency", r.concurrency)

	results := make([]Result, len(entries))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.concurrency)

	for i, entry := range entries {
		wg.Add(1)
		go func(idx int, entry Entry) {
			defer wg.Done()
			if entry.Language == "" {
				entry.Language = r.defaultLanguage
			}

			select {
			case semaphore <- struct{}{}: // Acquire
			case <-ctx.Done():
				results[idx] = Result{Entry: entry, Response: canceled(entry, ctx.Err())}
				return
			}
			defer func() { <-semaphore }() // Release

			if err := ctx.Err(); err != nil {
				results[idx] = Result{Entry: entry, Response: canceled(entry, err)}
				return
			}

			slog.Info("Converting entry", "source", entry.Source, "progress", fmt.Sprintf("%d/%d", idx+1, len(entries)))
			start := time.Now()
			resp := r.converter.Convert(ctx, entry.PipelineSource())
			results[idx] = Result{Entry: entry, Response: resp, Duration: time.Since(start)}
		}(i, entry)
	}

	wg.Wait()
	return results
}

func canceled(entry Entry, err error) *models.ConversionResponse {
	return &models.ConversionResponse{
		Language: blog.NormalizeLanguage(entry.Language),
		Images:   []models.ImageInfo{},
		Tags:     []string{},
		Error:    fmt.Sprintf("not started: %v", err),
	}
}
