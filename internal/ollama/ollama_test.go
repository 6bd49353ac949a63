package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"response": " drafted section \n"})
	}))
	defer server.Close()

	client := New(server.URL + "/")
	text, err := client.Complete(context.Background(), providers.Request{
		Model:       "mistral",
		Messages:    []providers.Message{providers.System("style"), providers.User("chunk")},
		Temperature: 0.7,
		MaxTokens:   100,
	})
	require.NoError(t, err)

	assert.Equal(t, "drafted section", text)
	assert.Equal(t, "mistral", got.Model)
	assert.Equal(t, "style", got.System)
	assert.Equal(t, "chunk", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 0.7, got.Options["temperature"])
	assert.EqualValues(t, 100, got.Options["num_predict"])
}

func TestDescribeImage(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "A bar chart."})
	}))
	defer server.Close()

	text, err := New(server.URL).DescribeImage(context.Background(), providers.VisionRequest{
		Model:  "llava",
		Prompt: "Describe",
		Image:  providers.Image{Data: []byte("png")},
	})
	require.NoError(t, err)

	assert.Equal(t, "A bar chart.", text)
	assert.Equal(t, []string{"cG5n"}, got.Images)
}

func TestNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := New(server.URL).Complete(context.Background(), providers.Request{Model: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
