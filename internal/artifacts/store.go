package artifacts

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/paper2blog/internal/extract"
	"github.com/lehigh-university-libraries/paper2blog/internal/models"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// URL prefixes the stored files are served under
const (
	ArtifactsURLPrefix = "/static/artifacts/"
	SavedURLPrefix     = "/static/saved/"
)

// ErrTooLarge is returned when an upload exceeds the allowed size.
var ErrTooLarge = errors.New("upload too large")

// Store keeps uploads, figures, converted markdown and the extraction cache
// under one data directory:
//
//	uploads/<uuid><ext>
//	artifacts/<id>/images/<name>
//	saved_md/<id>.md, <id>.html, <id>.yaml
//	cache/<sha256>-<lang>.json
type Store struct {
	Root string
}

// NewStore creates the directory layout under root.
func NewStore(root string) (*Store, error) {
	s := &Store{Root: root}
	for _, dir := range []string{s.UploadsDir(), s.ArtifactsDir(), s.SavedDir(), s.CacheDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return s, nil
}

// UploadsDir holds uploaded documents.
func (s *Store) UploadsDir() string { return filepath.Join(s.Root, "uploads") }

// ArtifactsDir holds per-conversion figure directories.
func (s *Store) ArtifactsDir() string { return filepath.Join(s.Root, "artifacts") }

// SavedDir holds converted markdown, rendered HTML and sidecars.
func (s *Store) SavedDir() string { return filepath.Join(s.Root, "saved_md") }

// CacheDir holds cached extraction results.
func (s *Store) CacheDir() string { return filepath.Join(s.Root, "cache") }

// SaveUpload writes r to a new uniquely named file in the uploads directory,
// keeping the extension of filename. At most limit bytes are accepted.
func (s *Store) SaveUpload(filename string, r io.Reader, limit int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".pdf"
	}
	path := filepath.Join(s.UploadsDir(), uuid.NewString()+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, limit+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if n > limit {
		_ = os.Remove(path)
		return "", ErrTooLarge
	}

	slog.Info("Saved upload", "filename", filename, "path", path, "bytes", n)
	return path, nil
}

// ImageSink returns the figure sink for conversion id.
func (s *Store) ImageSink(id string) (extract.ImageSink, error) {
	if !validID(id) {
		return nil, fmt.Errorf("invalid conversion id: %q", id)
	}
	dir := filepath.Join(s.ArtifactsDir(), id, "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &imageDir{dir: dir, urlPrefix: ArtifactsURLPrefix + id + "/images/"}, nil
}

type imageDir struct {
	dir       string
	urlPrefix string
}

func (d *imageDir) SaveImage(name string, data []byte) (string, error) {
	name = filepath.Base(filepath.Clean("/" + name))
	if name == "/" || name == "." {
		return "", fmt.Errorf("invalid image name")
	}
	if err := os.WriteFile(filepath.Join(d.dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return d.urlPrefix + name, nil
}

// SaveConversion writes the markdown, its HTML rendering and a YAML sidecar
// for a finished conversion. It returns the markdown path, or "" when the
// conversion produced no content and only the sidecar was written.
func (s *Store) SaveConversion(id, originalFilename string, resp *models.ConversionResponse) (string, error) {
	if !validID(id) {
		return "", fmt.Errorf("invalid conversion id: %q", id)
	}

	record := models.ArtifactRecord{
		PaperIdentifier:     id,
		OriginalFilename:    originalFilename,
		Language:            resp.Language,
		ConversionTimestamp: time.Now().UTC().Format(time.RFC3339),
		Title:               resp.Title,
		Tags:                resp.Tags,
		Error:               resp.Error,
		Figures:             resp.Images,
	}
	sidecar, err := yaml.Marshal(&record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sidecar: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.SavedDir(), id+".yaml"), sidecar, 0644); err != nil {
		return "", fmt.Errorf("failed to write sidecar: %w", err)
	}

	if strings.TrimSpace(resp.Content) == "" {
		return "", nil
	}

	mdPath := filepath.Join(s.SavedDir(), id+".md")
	if err := os.WriteFile(mdPath, []byte(resp.Content), 0644); err != nil {
		return "", fmt.Errorf("failed to write markdown: %w", err)
	}

	page, err := RenderHTML(resp.Title, resp.Content)
	if err != nil {
		slog.Warn("Failed to render HTML", "id", id, "error", err)
	} else if err := os.WriteFile(filepath.Join(s.SavedDir(), id+".html"), page, 0644); err != nil {
		slog.Warn("Failed to write HTML", "id", id, "error", err)
	}

	slog.Info("Saved conversion", "id", id, "path", mdPath)
	return mdPath, nil
}

// LoadRecord reads the sidecar of conversion id.
func (s *Store) LoadRecord(id string) (*models.ArtifactRecord, error) {
	if !validID(id) {
		return nil, fmt.Errorf("invalid conversion id: %q", id)
	}
	data, err := os.ReadFile(filepath.Join(s.SavedDir(), id+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}
	var record models.ArtifactRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse sidecar: %w", err)
	}
	return &record, nil
}

// RenderHTML renders markdown as a standalone HTML page.
func RenderHTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to render markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!doctype html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	page.WriteString(html.EscapeString(title))
	page.WriteString("</title>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// validID accepts ids that are safe as a single path element
func validID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`)
}
