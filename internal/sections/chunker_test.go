package sections

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraphs(n int) string {
	var parts []string
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("Paragraph %d talks about attention layers. It has a second sentence here.", i))
	}
	return strings.Join(parts, "\n\n")
}

func squash(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func TestFallbackChunksPreservesContent(t *testing.T) {
	text := paragraphs(12)

	chunks := FallbackChunks(text, 4)

	require.Len(t, chunks, 4)
	var bodies []string
	for _, c := range chunks {
		assert.Empty(t, c.Label)
		assert.NotEmpty(t, c.Body)
		bodies = append(bodies, c.Body)
	}
	assert.Equal(t, squash(CleanChunk(text)), squash(strings.Join(bodies, " ")))
}

func TestFallbackChunksSplitOnParagraphs(t *testing.T) {
	text := paragraphs(8)

	chunks := FallbackChunks(text, 4)

	require.Len(t, chunks, 4)
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c.Body, "Paragraph "), c.Body)
		assert.True(t, strings.HasSuffix(c.Body, "second sentence here."), c.Body)
	}
}

func TestFallbackChunksSplitOnSentences(t *testing.T) {
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d is here.", i))
	}
	text := strings.Join(sentences, " ")

	chunks := FallbackChunks(text, 2)

	require.Len(t, chunks, 2)
	assert.True(t, strings.HasSuffix(chunks[0].Body, "is here."), chunks[0].Body)
	assert.True(t, strings.HasPrefix(chunks[1].Body, "Sentence number"), chunks[1].Body)
}

func TestFallbackChunksStopsAtReferences(t *testing.T) {
	text := paragraphs(4) + "\n\n## References\n\n[1] Vaswani et al. Attention is all you need."

	chunks := FallbackChunks(text, 2)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotContains(t, c.Body, "Vaswani")
		assert.NotContains(t, c.Body, "References")
	}
}

func TestFallbackChunksEdgeCases(t *testing.T) {
	assert.Empty(t, FallbackChunks("", 4))
	assert.Empty(t, FallbackChunks("   \n\n  ", 4))
	assert.Empty(t, FallbackChunks("References\n\nOnly citations.", 4))

	chunks := FallbackChunks("Short text.", 4)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Short text.", chunks[0].Body)

	assert.Len(t, FallbackChunks(paragraphs(8), 0), DefaultChunkCount)
}

func TestStripStopSections(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"no stop heading", "Body only.", "Body only."},
		{"markdown references", "Body.\n## References\nRefs.", "Body.\n"},
		{"numbered appendix", "Body.\n7. Appendix\nMore.", "Body.\n"},
		{"acknowledgments", "Body.\nAcknowledgments\nThanks.", "Body.\n"},
		{"mid sentence mention kept", "See the references below.", "See the references below."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripStopSections(tt.text))
		})
	}
}

func TestCleanChunk(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"urls removed", "See https://example.com/paper for code.", "See for code."},
		{"www removed", "Visit www.example.org today.", "Visit today."},
		{"bracket citations removed", "Transformers [12] and RNNs [3, 4] differ.", "Transformers and RNNs differ."},
		{"citation ranges removed", "Prior work [1-5] exists.", "Prior work exists."},
		{"paren citations removed", "As shown (3) before.", "As shown before."},
		{"disallowed characters removed", "Loss = 0.5 * x + y (approx)", "Loss 0.5 x y approx"},
		{"repeated punctuation collapsed", "Wait... really?!", "Wait. really?"},
		{"space after punctuation", "First.Second,third", "First. Second, third"},
		{"whitespace collapsed", "  a\n\n\tb  ", "a b"},
		{"unicode letters kept", "注意力机制 works.", "注意力机制 works."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanChunk(tt.input))
		})
	}
}

func TestAdjustBoundaryFallsBackToRuneBoundary(t *testing.T) {
	text := strings.Repeat("字", 200)

	b := adjustBoundary(text, 301)

	assert.Equal(t, 300, b)
}
