package sections

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toMap(chunks []TextChunk) map[string]string {
	m := make(map[string]string, len(chunks))
	for _, c := range chunks {
		m[c.Label] = c.Body
	}
	return m
}

func labels(chunks []TextChunk) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, c.Label)
	}
	return out
}

func TestClassifyVariantHeaders(t *testing.T) {
	text := `
        Introduction
        This is intro

        2. Methodology
        Method section content

        Evaluation
        Results go here

        Discussion
        Final thoughts
        `

	result := Classify(text)

	require.Len(t, result, 4)
	assert.Equal(t, map[string]string{
		Introduction: "This is intro",
		Method:       "Method section content",
		Experiments:  "Results go here",
		Conclusion:   "Final thoughts",
	}, toMap(result))
}

func TestClassifyStopSections(t *testing.T) {
	text := `
        Abstract
        Content

        References
        Some citations
        `

	result := Classify(text)

	require.Len(t, result, 1)
	assert.Equal(t, Abstract, result[0].Label)
	assert.Equal(t, "Content", result[0].Body)
	for _, c := range result {
		assert.NotContains(t, c.Body, "Some citations")
		assert.NotEqual(t, "References", c.Label)
	}
}

func TestClassifyCaseInsensitive(t *testing.T) {
	text := `
        RELATED WORK
        Prior research

        APPENDIX
        Extra data
        `

	result := Classify(text)

	require.Len(t, result, 1)
	assert.Equal(t, RelatedWork, result[0].Label)
	assert.Equal(t, "Prior research", result[0].Body)
}

func TestClassifyEndToEndScenario(t *testing.T) {
	text := strings.Join([]string{
		"Abstract\n\nSummary text.",
		"Introduction\n\nMotivation text.",
		"References\n\nCitation list.",
	}, "\n\n")

	result := Classify(text)

	assert.Equal(t, map[string]string{
		Abstract:     "Summary text.",
		Introduction: "Motivation text.",
	}, toMap(result))
	assert.Equal(t, []string{Abstract, Introduction}, labels(result))
}

func TestClassifyDiscardsPreamble(t *testing.T) {
	text := "# Attention Is All You Need\nAshish Vaswani, Noam Shazeer\n\n## 1 Introduction\nRecurrent models dominate.\n"

	result := Classify(text)

	require.Len(t, result, 1)
	assert.Equal(t, Introduction, result[0].Label)
	assert.Equal(t, "Recurrent models dominate.", result[0].Body)
}

func TestClassifyKeepsParagraphBreaks(t *testing.T) {
	text := "Method\nFirst paragraph line one.\nLine two.\n\n\n\nSecond paragraph.\n"

	result := Classify(text)

	require.Len(t, result, 1)
	assert.Equal(t, "First paragraph line one.\nLine two.\n\nSecond paragraph.", result[0].Body)
}

func TestClassifyRepeatedLabelAppends(t *testing.T) {
	text := "Experiments\nSetup.\nResults\nAccuracy improves.\nConclusion\nDone."

	result := Classify(text)

	assert.Equal(t, []string{Experiments, Conclusion}, labels(result))
	assert.Equal(t, "Setup.\n\nAccuracy improves.", result[0].Body)
}

func TestClassifyNoHeaders(t *testing.T) {
	assert.Empty(t, Classify("Just a paragraph of text without any headings at all.\nAnother line."))
	assert.Empty(t, Classify(""))
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		line     string
		expected string
	}{
		{"2. Methodology", "methodology"},
		{"## 3.1 Experimental Setup", "experimental setup"},
		{"IV. EXPERIMENTS", "experiments"},
		{"- Related Work:", "related work"},
		{"**Abstract**", "abstract"},
		{"A. Background", "background"},
		{"Conclusion.", "conclusion"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeHeader(tt.line))
		})
	}
}

func TestMatchHeader(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		expected  string
		wantMatch bool
	}{
		{name: "exact", header: "motivation", expected: Introduction, wantMatch: true},
		{name: "loose substring", header: "conclusion and future directions", expected: Conclusion, wantMatch: true},
		{name: "loose related work", header: "a survey of related work", expected: RelatedWork, wantMatch: true},
		{name: "short key word boundary", header: "eval protocol", expected: Experiments, wantMatch: true},
		{name: "short key inside word", header: "evaluate the model", wantMatch: false},
		{name: "prefix with connector", header: "methods and materials", expected: Method, wantMatch: true},
		{name: "prefix with sub label", header: "appendix a", expected: stop, wantMatch: true},
		{name: "prefix with colon", header: "approach: sparse attention", expected: Method, wantMatch: true},
		{name: "prefix of sentence rejected", header: "results go here", wantMatch: false},
		{name: "prefix inside word rejected", header: "modeling choices", wantMatch: false},
		{name: "body text", header: "motivation text", wantMatch: false},
		{name: "unknown", header: "training dynamics", wantMatch: false},
		{name: "empty", header: "", wantMatch: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := matchHeader(tt.header)
			assert.Equal(t, tt.wantMatch, ok)
			if tt.wantMatch {
				assert.Equal(t, tt.expected, label)
			}
		})
	}
}

func TestIsHeaderCandidate(t *testing.T) {
	tests := []struct {
		line     string
		expected bool
	}{
		{"Introduction", true},
		{"1.2.3 Results", true},
		{"", false},
		{strings.Repeat("a", 101), false},
		{"one, two, three, four", false},
		{"Results: a, b, c", false},
		{"Results: a, b", true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHeaderCandidate(tt.line))
		})
	}
}
