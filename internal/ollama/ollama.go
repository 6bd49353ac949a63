package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
)

// Ollama is a provider for a local Ollama server
type Ollama struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a new Ollama provider
func New(baseURL string) *Ollama {
	return &Ollama{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options"`
}

// Complete flattens the messages into a generate call
func (o *Ollama) Complete(ctx context.Context, req providers.Request) (string, error) {
	system, prompt := providers.PromptOnly(req.Messages)
	return o.generate(ctx, generateRequest{
		Model:   req.Model,
		System:  system,
		Prompt:  prompt,
		Options: options(req.Temperature, req.MaxTokens),
	})
}

// DescribeImage sends the prompt with one base64 image
func (o *Ollama) DescribeImage(ctx context.Context, req providers.VisionRequest) (string, error) {
	return o.generate(ctx, generateRequest{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Images:  []string{base64.StdEncoding.EncodeToString(req.Image.Data)},
		Options: options(req.Temperature, req.MaxTokens),
	})
}

func options(temperature float64, maxTokens int) map[string]any {
	opts := map[string]any{"temperature": temperature}
	if maxTokens > 0 {
		opts["num_predict"] = maxTokens
	}
	return opts
}

func (o *Ollama) generate(ctx context.Context, body generateRequest) (string, error) {
	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}

	return strings.TrimSpace(response.Response), nil
}
