package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/artifacts"
)

// HandleStatic serves stored figures and converted posts.
func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	var root, rel string
	switch {
	case strings.HasPrefix(r.URL.Path, artifacts.ArtifactsURLPrefix):
		root, rel = h.files.ArtifactsDir(), strings.TrimPrefix(r.URL.Path, artifacts.ArtifactsURLPrefix)
	case strings.HasPrefix(r.URL.Path, artifacts.SavedURLPrefix):
		root, rel = h.files.SavedDir(), strings.TrimPrefix(r.URL.Path, artifacts.SavedURLPrefix)
	default:
		http.NotFound(w, r)
		return
	}

	// Prevent directory traversal attacks
	if rel == "" || strings.HasSuffix(rel, "/") || strings.Contains(rel, "..") || strings.Contains(rel, `\`) {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	full := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	// Set appropriate content type based on file extension
	switch filepath.Ext(rel) {
	case ".md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	case ".yaml":
		w.Header().Set("Content-Type", "application/yaml")
	case ".html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}

	http.ServeFile(w, r, full)
}
