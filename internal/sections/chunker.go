package sections

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultChunkCount is the number of positional chunks used when no section
// headers are recognized.
const DefaultChunkCount = 4

const (
	paragraphWindow = 100
	sentenceWindow  = 50

	// minChunkBytes keeps short texts from being cut into fragments.
	minChunkBytes = 100
)

var (
	stopSectionRe    = regexp.MustCompile(`(?im)^[ \t]*(?:#+[ \t]*)?(?:\d+(?:\.\d+)*\.?[ \t]*)?(?:references|bibliography|acknowledge?ments?|appendix|appendices)\b`)
	urlRe            = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
	citationRe       = regexp.MustCompile(`\[\d+(?:\s*[,–-]\s*\d+)*\]|\(\d+\)`)
	disallowedRe     = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?;:\-]`)
	repeatedPunctRe  = regexp.MustCompile(`[.,!?;:\-]{2,}`)
	punctThenLetter  = regexp.MustCompile(`([.,!?;:])(\p{L})`)
	whitespaceRunsRe = regexp.MustCompile(`\s+`)
)

// FallbackChunks splits text into n roughly equal chunks, preferring
// paragraph and then sentence boundaries, and cleans each chunk.
func FallbackChunks(text string, n int) []TextChunk {
	if n < 1 {
		n = DefaultChunkCount
	}

	text = StripStopSections(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) < n*minChunkBytes {
		n = max(1, len(text)/minChunkBytes)
	}

	bounds := []int{0}
	for i := 1; i < n; i++ {
		target := i * len(text) / n
		b := adjustBoundary(text, target)
		if b > bounds[len(bounds)-1] && b < len(text) {
			bounds = append(bounds, b)
		}
	}
	bounds = append(bounds, len(text))

	var chunks []TextChunk
	for i := 0; i+1 < len(bounds); i++ {
		cleaned := CleanChunk(text[bounds[i]:bounds[i+1]])
		if cleaned != "" {
			chunks = append(chunks, TextChunk{Body: cleaned})
		}
	}
	return chunks
}

// StripStopSections drops everything from the first references, bibliography,
// acknowledgements or appendix heading onward.
func StripStopSections(text string) string {
	if loc := stopSectionRe.FindStringIndex(text); loc != nil {
		return text[:loc[0]]
	}
	return text
}

// adjustBoundary moves target to the nearest paragraph break within
// paragraphWindow, else the nearest sentence end within sentenceWindow,
// else a rune boundary at target.
func adjustBoundary(text string, target int) int {
	if b, ok := nearest(text, target, paragraphWindow, func(i int) (int, bool) {
		if strings.HasPrefix(text[i:], "\n\n") {
			return i + 2, true
		}
		return 0, false
	}); ok {
		return b
	}

	if b, ok := nearest(text, target, sentenceWindow, func(i int) (int, bool) {
		switch text[i] {
		case '.', '!', '?':
			if i+1 < len(text) && isSpace(text[i+1]) {
				return i + 1, true
			}
		}
		return 0, false
	}); ok {
		return b
	}

	for target > 0 && target < len(text) && !utf8.RuneStart(text[target]) {
		target--
	}
	return target
}

// nearest scans outward from target and returns the first split point match
// reports.
func nearest(text string, target, window int, match func(i int) (int, bool)) (int, bool) {
	for d := 0; d <= window; d++ {
		for _, i := range []int{target - d, target + d} {
			if i < 0 || i >= len(text) {
				continue
			}
			if b, ok := match(i); ok {
				return b, true
			}
		}
	}
	return 0, false
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// CleanChunk normalizes a positional chunk: URLs and numeric citations are
// removed, only letters, digits, whitespace and basic punctuation are kept,
// repeated punctuation is collapsed, punctuation gets a following space and
// whitespace runs become single spaces.
func CleanChunk(s string) string {
	s = urlRe.ReplaceAllString(s, " ")
	s = citationRe.ReplaceAllString(s, "")
	s = disallowedRe.ReplaceAllString(s, "")
	s = repeatedPunctRe.ReplaceAllStringFunc(s, func(m string) string {
		return m[:1]
	})
	s = punctThenLetter.ReplaceAllString(s, "$1 $2")
	s = whitespaceRunsRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
