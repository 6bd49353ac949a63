package batch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/blog"
	"github.com/parquet-go/parquet-go"
)

// Entry is one paper listed in a batch manifest
type Entry struct {
	Source   string `json:"source" parquet:"source,optional"`
	Language string `json:"language,omitempty" parquet:"language,optional"`
}

// IsURL reports whether the entry names a web page rather than a local file.
func (e Entry) IsURL() bool {
	s := strings.ToLower(e.Source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// PipelineSource turns the entry into a pipeline source.
func (e Entry) PipelineSource() blog.Source {
	if e.IsURL() {
		return blog.Source{URL: e.Source, Language: e.Language}
	}
	return blog.Source{Path: e.Source, OriginalFilename: filepath.Base(e.Source), Language: e.Language}
}

// Loader reads batch manifests
type Loader struct {
	manifestPath string
}

// NewLoader creates a new manifest loader
func NewLoader(manifestPath string) *Loader {
	return &Loader{
		manifestPath: manifestPath,
	}
}

// Load reads every entry from the manifest (JSONL or Parquet). Relative
// file sources are resolved against the manifest's directory.
func (l *Loader) Load() ([]Entry, error) {
	return l.LoadSample(0)
}

// LoadSample reads at most limit entries; limit <= 0 reads them all.
func (l *Loader) LoadSample(limit int) ([]Entry, error) {
	ext := strings.ToLower(filepath.Ext(l.manifestPath))

	var (
		entries []Entry
		err     error
	)
	switch ext {
	case ".parquet":
		entries, err = l.loadParquet(limit)
	case ".jsonl", ".json":
		entries, err = l.loadJSONL(limit)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s (supported: .parquet, .jsonl)", ext)
	}
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(l.manifestPath)
	for i := range entries {
		entries[i].Source = strings.TrimSpace(entries[i].Source)
		if entries[i].Source == "" {
			return nil, fmt.Errorf("manifest entry %d has no source", i+1)
		}
		if !entries[i].IsURL() && !filepath.IsAbs(entries[i].Source) {
			entries[i].Source = filepath.Join(dir, entries[i].Source)
		}
	}

	slog.Debug("Loaded manifest", "path", l.manifestPath, "entries", len(entries))
	return entries, nil
}

func (l *Loader) loadJSONL(limit int) ([]Entry, error) {
	file, err := os.Open(l.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)

	const maxCapacity = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		if limit > 0 && len(entries) >= limit {
			break
		}
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}
	return entries, nil
}

func (l *Loader) loadParquet(limit int) ([]Entry, error) {
	file, err := os.Open(l.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet manifest opened", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Entry](pf)
	defer reader.Close()

	var entries []Entry
	rows := make([]Entry, 128)
	for limit <= 0 || len(entries) < limit {
		n, err := reader.Read(rows)
		if n > 0 {
			if limit > 0 && n > limit-len(entries) {
				n = limit - len(entries)
			}
			entries = append(entries, rows[:n]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return entries, nil
}
