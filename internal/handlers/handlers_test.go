package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/paper2blog/internal/artifacts"
	"github.com/lehigh-university-libraries/paper2blog/internal/blog"
	"github.com/lehigh-university-libraries/paper2blog/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConverter struct {
	mu      sync.Mutex
	sources []blog.Source
	resp    func(blog.Source) *models.ConversionResponse
}

func (f *fakeConverter) Convert(_ context.Context, src blog.Source) *models.ConversionResponse {
	f.mu.Lock()
	f.sources = append(f.sources, src)
	n := len(f.sources)
	f.mu.Unlock()
	if f.resp != nil {
		return f.resp(src)
	}
	return &models.ConversionResponse{
		ID:       fmt.Sprintf("conv-%d", n),
		Title:    "A Post",
		Content:  "# A Post\n\nBody.",
		Language: blog.NormalizeLanguage(src.Language),
		Images:   []models.ImageInfo{},
		Tags:     []string{"ai"},
	}
}

func pdfBytes() []byte {
	stream := "BT /F1 24 Tf 72 720 Td (Paper) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return []byte(b.String())
}

func newTestHandler(t *testing.T, conv *fakeConverter, opts ...Option) (*Handler, *artifacts.Store, *http.ServeMux) {
	t.Helper()
	files, err := artifacts.NewStore(t.TempDir())
	require.NoError(t, err)
	h := New(conv, files, opts...)
	mux := http.NewServeMux()
	h.Routes(mux)
	return h, files, mux
}

func multipartRequest(t *testing.T, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.ConversionResponse {
	t.Helper()
	var resp models.ConversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestConvertUpload(t *testing.T) {
	conv := &fakeConverter{}
	_, files, mux := newTestHandler(t, conv)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, multipartRequest(t, map[string]string{"language": "chinese"}, "paper.pdf", pdfBytes()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeResponse(t, rec)
	assert.Equal(t, "conv-1", resp.ID)
	assert.Equal(t, "zh", resp.Language)

	require.Len(t, conv.sources, 1)
	src := conv.sources[0]
	assert.Equal(t, "paper.pdf", src.OriginalFilename)
	assert.Equal(t, "chinese", src.Language)
	assert.Equal(t, files.UploadsDir(), filepath.Dir(src.Path))
	_, err := os.Stat(src.Path)
	assert.NoError(t, err)
}

func TestConvertDefaultsLanguage(t *testing.T) {
	conv := &fakeConverter{}
	_, _, mux := newTestHandler(t, conv)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, multipartRequest(t, nil, "paper.pdf", pdfBytes()))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, conv.sources, 1)
	assert.Equal(t, "english", conv.sources[0].Language)
	assert.Equal(t, "en", decodeResponse(t, rec).Language)
}

func TestConvertRejectsBadUploads(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		maxBytes int64
		code     int
	}{
		{name: "not a pdf", filename: "notes.pdf", data: []byte("just some text"), code: http.StatusBadRequest},
		{name: "corrupt pdf", filename: "broken.pdf", data: []byte("%PDF-1.4\ngarbage"), code: http.StatusBadRequest},
		{name: "too large", filename: "big.pdf", data: bytes.Repeat([]byte("x"), 2048), maxBytes: 1024, code: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &fakeConverter{}
			var opts []Option
			if tt.maxBytes > 0 {
				opts = append(opts, WithMaxUploadBytes(tt.maxBytes))
			}
			_, files, mux := newTestHandler(t, conv, opts...)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, multipartRequest(t, nil, tt.filename, tt.data))

			assert.Equal(t, tt.code, rec.Code)
			assert.Empty(t, conv.sources)
			entries, err := os.ReadDir(files.UploadsDir())
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestConvertRequiresInput(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "empty multipart form",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"language": "english"}, "", nil)
			},
		},
		{
			name: "empty json body",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"language":"zh"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
		},
		{
			name: "no body",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/convert", nil)
			},
		},
		{
			name: "invalid json",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
		},
		{
			name: "relative url",
			req: func(t *testing.T) *http.Request {
				form := url.Values{"url": {"/just/a/path"}}
				req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &fakeConverter{}
			_, _, mux := newTestHandler(t, conv)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, tt.req(t))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, conv.sources)
		})
	}
}

func TestConvertURL(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
		lang string
	}{
		{
			name: "json",
			req: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(`{"url":"https://example.com/post","language":"zh"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			lang: "zh",
		},
		{
			name: "urlencoded form",
			req: func(t *testing.T) *http.Request {
				form := url.Values{"url": {"https://example.com/post"}}
				req := httptest.NewRequest(http.MethodPost, "/api/convert", strings.NewReader(form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return req
			},
			lang: "english",
		},
		{
			name: "multipart form",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, map[string]string{"url": "https://example.com/post", "language": "english"}, "", nil)
			},
			lang: "english",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := &fakeConverter{}
			_, _, mux := newTestHandler(t, conv)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, tt.req(t))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Len(t, conv.sources, 1)
			assert.Equal(t, "https://example.com/post", conv.sources[0].URL)
			assert.Empty(t, conv.sources[0].Path)
			assert.Equal(t, tt.lang, conv.sources[0].Language)
		})
	}
}

func TestConvertReportsPipelineFailureInBody(t *testing.T) {
	conv := &fakeConverter{resp: func(src blog.Source) *models.ConversionResponse {
		return &models.ConversionResponse{
			ID:       "failed-1",
			Language: "en",
			Images:   []models.ImageInfo{},
			Tags:     []string{},
			Error:    "pipeline failure: no text could be extracted",
		}
	}}
	_, _, mux := newTestHandler(t, conv)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, multipartRequest(t, nil, "paper.pdf", pdfBytes()))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, "pipeline failure: no text could be extracted", resp.Error)
	assert.Empty(t, resp.Content)
	assert.NotNil(t, resp.Images)
}

func TestConvertMethodNotAllowed(t *testing.T) {
	_, _, mux := newTestHandler(t, &fakeConverter{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/convert", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestConversions(t *testing.T) {
	h, _, mux := newTestHandler(t, &fakeConverter{})
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, multipartRequest(t, nil, fmt.Sprintf("paper%d.pdf", i), pdfBytes()))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.ConversionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "conv-2", list[0].ID)
	assert.Equal(t, "paper1.pdf", list[0].OriginalFilename)
	assert.Equal(t, "conv-1", list[1].ID)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversions/conv-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var record models.ConversionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "paper0.pdf", record.OriginalFilename)
	require.NotNil(t, record.Response)
	assert.Equal(t, "A Post", record.Response.Title)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/conversions/conv-1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/conversions/conv-1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatic(t *testing.T) {
	_, files, mux := newTestHandler(t, &fakeConverter{})

	sink, err := files.ImageSink("conv-1")
	require.NoError(t, err)
	imageURL, err := sink.SaveImage("fig.png", []byte("png bytes"))
	require.NoError(t, err)
	_, err = files.SaveConversion("conv-1", "paper.pdf", &models.ConversionResponse{Title: "T", Content: "# T\n\nBody", Language: "en"})
	require.NoError(t, err)

	tests := []struct {
		name        string
		path        string
		code        int
		body        string
		contentType string
	}{
		{name: "figure", path: imageURL, code: http.StatusOK, body: "png bytes"},
		{name: "markdown", path: "/static/saved/conv-1.md", code: http.StatusOK, body: "# T\n\nBody", contentType: "text/markdown; charset=utf-8"},
		{name: "html", path: "/static/saved/conv-1.html", code: http.StatusOK, body: "<h1>T</h1>", contentType: "text/html; charset=utf-8"},
		{name: "sidecar", path: "/static/saved/conv-1.yaml", code: http.StatusOK, body: "paper_identifier: conv-1", contentType: "application/yaml"},
		{name: "missing", path: "/static/saved/nope.md", code: http.StatusNotFound},
		{name: "unknown prefix", path: "/static/uploads/x.pdf", code: http.StatusNotFound},
		{name: "traversal", path: "/static/saved/..%5Cuploads", code: http.StatusBadRequest},
		{name: "directory listing", path: "/static/artifacts/conv-1/", code: http.StatusBadRequest},
		{name: "directory without slash", path: "/static/artifacts/conv-1/images", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Contains(t, rec.Body.String(), tt.body)
			}
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestHealthcheck(t *testing.T) {
	_, _, mux := newTestHandler(t, &fakeConverter{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
