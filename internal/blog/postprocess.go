package blog

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

var (
	tagsLineRe     = regexp.MustCompile(`(?i)^[*_\s]*(?:tags|标签)[*_\s]*[:：][*_\s]*(.*)$`)
	tagSeparatorRe = regexp.MustCompile(`[,，、;；]`)
)

// PostProcessor runs the final coherence pass over the joined draft.
type PostProcessor struct {
	client Client
}

// NewPostProcessor creates a post processor.
func NewPostProcessor(client Client) *PostProcessor {
	return &PostProcessor{client: client}
}

// Process polishes the draft and splits off its tags. If the model call
// fails or returns nothing, the draft is used as is.
func (p *PostProcessor) Process(ctx context.Context, draft, lang string) (string, []string) {
	content, err := p.client.complete(ctx, lang, postProcessPrompt(draft, lang))
	if err != nil {
		slog.Warn("Post-processing failed, using draft", "error", err)
		content = draft
	}
	return SplitTags(content)
}

// SplitTags removes a trailing "Tags: a, b" line from content and returns
// the parsed tags, deduplicated in their original order.
func SplitTags(content string) (string, []string) {
	lines := strings.Split(strings.TrimRight(content, "\n\r\t "), "\n")
	tags := []string{}

	last := len(lines) - 1
	if last < 0 {
		return content, tags
	}
	m := tagsLineRe.FindStringSubmatch(strings.TrimSpace(lines[last]))
	if m == nil {
		return strings.TrimSpace(content), tags
	}

	seen := make(map[string]bool)
	for _, raw := range tagSeparatorRe.Split(m[1], -1) {
		tag := strings.Trim(strings.TrimSpace(raw), "#*`\"'")
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return strings.TrimSpace(strings.Join(lines[:last], "\n")), tags
}
