package blog

import (
	"context"
	"fmt"
	"strings"
)

const (
	titleSourceRunes = 1000
	untitled         = "Untitled"
)

// TitleTranslator produces a localized title for the post.
type TitleTranslator struct {
	client Client
}

// NewTitleTranslator creates a title translator.
func NewTitleTranslator(client Client) *TitleTranslator {
	return &TitleTranslator{client: client}
}

// Translate derives a title in lang from the beginning of the paper text.
func (t *TitleTranslator) Translate(ctx context.Context, text, lang string) (string, error) {
	out, err := t.client.complete(ctx, lang, titlePrompt(clipRunes(text, titleSourceRunes), lang))
	if err != nil {
		return "", fmt.Errorf("failed to translate title: %w", err)
	}
	title := cleanTitle(out)
	if title == "" {
		return "", fmt.Errorf("failed to translate title: empty title")
	}
	return title, nil
}

func cleanTitle(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
		line = strings.Trim(line, "\"'“”《》*` ")
		line = strings.TrimPrefix(line, "Title:")
		line = strings.TrimPrefix(line, "标题：")
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// ExtractTitle returns the first level-one heading of content, or "".
func ExtractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

// ExtractSummary returns the body of the "## Summary" or "## 总结" section,
// up to the next heading of any level, or "" when there is none.
func ExtractSummary(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		heading := strings.TrimSpace(line)
		if !strings.EqualFold(heading, "## Summary") && heading != "## 总结" {
			continue
		}
		var body []string
		for _, next := range lines[i+1:] {
			if strings.HasPrefix(strings.TrimSpace(next), "#") {
				break
			}
			body = append(body, next)
		}
		return strings.TrimSpace(strings.Join(body, "\n"))
	}
	return ""
}
