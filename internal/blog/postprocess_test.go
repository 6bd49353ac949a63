package blog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name            string
		content         string
		expectedContent string
		expectedTags    []string
	}{
		{
			name:            "trailing tags line",
			content:         "# Title\n\nBody.\n\nTags: LLM, attention, transformers\n",
			expectedContent: "# Title\n\nBody.",
			expectedTags:    []string{"LLM", "attention", "transformers"},
		},
		{
			name:            "duplicates and decoration removed",
			content:         "Body.\n**Tags:** #llm, `LLM`, attention,, ",
			expectedContent: "Body.",
			expectedTags:    []string{"llm", "attention"},
		},
		{
			name:            "chinese tags",
			content:         "正文。\n\n标签：大模型、注意力，Transformer",
			expectedContent: "正文。",
			expectedTags:    []string{"大模型", "注意力", "Transformer"},
		},
		{
			name:            "tags line not last",
			content:         "Tags: a, b\n\nMore body.",
			expectedContent: "Tags: a, b\n\nMore body.",
			expectedTags:    []string{},
		},
		{
			name:            "no tags",
			content:         "Body only.",
			expectedContent: "Body only.",
			expectedTags:    []string{},
		},
		{
			name:            "empty",
			content:         "",
			expectedContent: "",
			expectedTags:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, tags := SplitTags(tt.content)
			assert.Equal(t, tt.expectedContent, content)
			assert.Equal(t, tt.expectedTags, tags)
		})
	}
}

func TestPostProcess(t *testing.T) {
	fake := &fakeProvider{post: func(prompt string) (string, error) {
		assert.Contains(t, prompt, "Keep every [Figure N] placeholder")
		assert.Contains(t, prompt, "draft body [Figure 1]")
		return "# Polished\n\nBetter body [Figure 1]\n\n## Summary\nRecap.\n\nTags: llm, vision", nil
	}}

	content, tags := NewPostProcessor(testClient(fake)).Process(context.Background(), "draft body [Figure 1]", LangEnglish)

	assert.Equal(t, "# Polished\n\nBetter body [Figure 1]\n\n## Summary\nRecap.", content)
	assert.Equal(t, []string{"llm", "vision"}, tags)
}

func TestPostProcessFallsBackToDraft(t *testing.T) {
	tests := []struct {
		name string
		post func(string) (string, error)
	}{
		{"error", func(string) (string, error) { return "", errors.New("rate limited") }},
		{"empty", func(string) (string, error) { return "\n  \n", nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProvider{post: tt.post}

			content, tags := NewPostProcessor(testClient(fake)).Process(context.Background(), "the draft", LangChinese)

			assert.Equal(t, "the draft", content)
			require.NotNil(t, tags)
			assert.Empty(t, tags)
			require.Len(t, fake.promptsContaining("请审阅并润色"), 1)
		})
	}
}
