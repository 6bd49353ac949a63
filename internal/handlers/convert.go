package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/artifacts"
	"github.com/lehigh-university-libraries/paper2blog/internal/blog"
	"github.com/lehigh-university-libraries/paper2blog/internal/models"
	"github.com/lehigh-university-libraries/paper2blog/internal/pdfdoc"
)

func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// JSON requests can only name a URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLConvert(w, r)
		return
	}

	h.handleFormConvert(w, r)
}

func (h *Handler) handleURLConvert(w http.ResponseWriter, r *http.Request) {
	var request struct {
		URL      string `json:"url"`
		Language string `json:"language"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(request.URL) == "" {
		h.writeError(w, "Either a file or a url is required", http.StatusBadRequest)
		return
	}

	h.convertURL(w, r, request.URL, request.Language)
}

func (h *Handler) handleFormConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, fmt.Sprintf("File too large (max %dMB)", h.maxUploadBytes>>20), http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.Warn("Failed to remove multipart files", "error", err)
			}
		}()
	}

	language := r.FormValue("language")

	file, header, err := r.FormFile("file")
	if err != nil {
		if pageURL := strings.TrimSpace(r.FormValue("url")); pageURL != "" {
			h.convertURL(w, r, pageURL, language)
			return
		}
		h.writeError(w, "Either a file or a url is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, err := h.files.SaveUpload(header.Filename, file, h.maxUploadBytes)
	if err != nil {
		if errors.Is(err, artifacts.ErrTooLarge) {
			h.writeError(w, fmt.Sprintf("File too large (max %dMB)", h.maxUploadBytes>>20), http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Failed to save upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	info, err := pdfdoc.Validate(path)
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			slog.Warn("Failed to remove rejected upload", "path", path, "error", rmErr)
		}
		if errors.Is(err, pdfdoc.ErrNotPDF) {
			h.writeError(w, "Uploaded file is not a PDF", http.StatusBadRequest)
			return
		}
		h.writeError(w, "Invalid PDF: "+err.Error(), http.StatusBadRequest)
		return
	}
	slog.Info("Accepted upload", "filename", header.Filename, "pages", info.Pages)

	h.convert(w, r, blog.Source{
		Path:             path,
		OriginalFilename: header.Filename,
		Language:         h.language(language),
	})
}

func (h *Handler) convertURL(w http.ResponseWriter, r *http.Request, pageURL, language string) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		h.writeError(w, "url must be an absolute http(s) URL", http.StatusBadRequest)
		return
	}
	h.convert(w, r, blog.Source{URL: u.String(), Language: h.language(language)})
}

// convert runs the pipeline and records the result. Pipeline failures are
// reported in the response body, not the status code.
func (h *Handler) convert(w http.ResponseWriter, r *http.Request, src blog.Source) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp := h.converter.Convert(ctx, src)
	if resp.ID != "" {
		h.store.Set(resp.ID, &models.ConversionRecord{
			ID:               resp.ID,
			Source:           src.String(),
			OriginalFilename: src.OriginalFilename,
			Language:         resp.Language,
			Response:         resp,
			CreatedAt:        h.now(),
		})
	}

	h.writeJSON(w, resp)
}

func (h *Handler) language(requested string) string {
	if strings.TrimSpace(requested) == "" {
		return h.defaultLanguage
	}
	return requested
}
