package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/extract"
	"github.com/lehigh-university-libraries/paper2blog/internal/utils"
)

// Extractor is the extraction step being cached.
type Extractor interface {
	Extract(ctx context.Context, path, language string, sink extract.ImageSink) extract.Content
}

// CachedExtractor reuses earlier extraction results for identical documents.
// Entries are keyed by the sha256 of the file and the caption language; the
// cached figures keep the URLs of the conversion that first stored them.
type CachedExtractor struct {
	inner Extractor
	dir   string
}

// NewCachedExtractor wraps inner with a cache in the store's cache directory.
func (s *Store) NewCachedExtractor(inner Extractor) *CachedExtractor {
	return &CachedExtractor{inner: inner, dir: s.CacheDir()}
}

// Extract returns the cached content for path when present, otherwise runs
// the wrapped extractor and caches non-empty results.
func (c *CachedExtractor) Extract(ctx context.Context, path, language string, sink extract.ImageSink) extract.Content {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Extraction cache bypassed", "path", path, "error", err)
		return c.inner.Extract(ctx, path, language, sink)
	}
	entry := filepath.Join(c.dir, fmt.Sprintf("%s-%s.json", utils.CalculateDataSHA256(data), language))

	if cached, err := os.ReadFile(entry); err == nil {
		var content extract.Content
		if err := json.Unmarshal(cached, &content); err == nil {
			slog.Info("Using cached extraction", "path", path, "entry", filepath.Base(entry))
			return content
		}
		slog.Warn("Ignoring unreadable cache entry", "entry", entry)
	}

	content := c.inner.Extract(ctx, path, language, sink)
	if strings.TrimSpace(content.Text) == "" {
		return content
	}

	encoded, err := json.Marshal(content)
	if err != nil {
		slog.Warn("Failed to encode cache entry", "error", err)
		return content
	}
	if err := os.WriteFile(entry, encoded, 0644); err != nil {
		slog.Warn("Failed to write cache entry", "entry", entry, "error", err)
	}
	return content
}
