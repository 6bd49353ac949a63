package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/paper2blog/internal/models"
)

// MarkerResponse is the document-conversion service reply
type MarkerResponse struct {
	Success  bool              `json:"success"`
	Output   string            `json:"output"`
	Markdown string            `json:"markdown"`
	Images   map[string]string `json:"images"`
	Tables   []models.Table    `json:"tables"`
	Error    string            `json:"error"`
}

// Text returns the markdown body regardless of which field the server filled.
func (r *MarkerResponse) Text() string {
	if r.Output != "" {
		return r.Output
	}
	return r.Markdown
}

// MarkerClient talks to a marker conversion server
type MarkerClient struct {
	BaseURL    string
	Upload     bool
	HTTPClient *http.Client
}

// NewMarkerClient creates a client. When upload is true the document bytes are
// posted instead of a path the server must be able to read.
func NewMarkerClient(baseURL string, upload bool) *MarkerClient {
	return &MarkerClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Upload:  upload,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// Convert asks the server to turn the document at path into markdown
func (c *MarkerClient) Convert(ctx context.Context, path string) (*MarkerResponse, error) {
	var (
		req *http.Request
		err error
	)
	if c.Upload {
		req, err = c.uploadRequest(ctx, path)
	} else {
		req, err = c.pathRequest(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call marker API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("marker API returned status %d: %s", resp.StatusCode, string(body))
	}

	var out MarkerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode marker response: %w", err)
	}

	return &out, nil
}

func (c *MarkerClient) pathRequest(ctx context.Context, path string) (*http.Request, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"filepath":      absPath,
		"output_format": "markdown",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal marker request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/marker", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create marker request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *MarkerClient) uploadRequest(ctx context.Context, path string) (*http.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.WriteField("output_format", "markdown"); err != nil {
		return nil, fmt.Errorf("failed to write form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/marker/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create marker request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}
