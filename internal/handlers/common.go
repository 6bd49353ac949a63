package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/paper2blog/internal/artifacts"
	"github.com/lehigh-university-libraries/paper2blog/internal/blog"
	"github.com/lehigh-university-libraries/paper2blog/internal/models"
	"github.com/lehigh-university-libraries/paper2blog/internal/storage"
)

// MaxUploadBytes bounds an uploaded paper.
const MaxUploadBytes = 50 << 20

// Converter runs one paper to blog conversion.
type Converter interface {
	Convert(ctx context.Context, src blog.Source) *models.ConversionResponse
}

type Handler struct {
	converter       Converter
	store           *storage.ConversionStore
	files           *artifacts.Store
	timeout         time.Duration
	maxUploadBytes  int64
	defaultLanguage string
	now             func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout bounds each conversion.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithMaxUploadBytes overrides MaxUploadBytes.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) { h.maxUploadBytes = n }
}

// WithDefaultLanguage sets the language used when a request names none.
func WithDefaultLanguage(lang string) Option {
	return func(h *Handler) { h.defaultLanguage = lang }
}

func New(converter Converter, files *artifacts.Store, opts ...Option) *Handler {
	h := &Handler{
		converter:       converter,
		store:           storage.New(),
		files:           files,
		maxUploadBytes:  MaxUploadBytes,
		defaultLanguage: "english",
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/convert", h.HandleConvert)
	mux.HandleFunc("/api/conversions", h.HandleConversions)
	mux.HandleFunc("/api/conversions/", h.HandleConversionDetail)
	mux.HandleFunc("/static/", h.HandleStatic)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// Conversion helpers
func (h *Handler) getConversionOrError(w http.ResponseWriter, id string) (*models.ConversionRecord, bool) {
	record, exists := h.store.Get(id)
	if !exists {
		h.writeError(w, "Conversion not found", http.StatusNotFound)
		return nil, false
	}
	return record, true
}
