package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
)

// ErrPipelineFailure marks a conversion that produced no usable blog content.
var ErrPipelineFailure = errors.New("pipeline failure")

// Client binds a completion provider to the settings used for every call.
type Client struct {
	Provider    providers.Provider
	Model       string
	Temperature float64
	MaxTokens   int
}

func (c Client) complete(ctx context.Context, lang, prompt string) (string, error) {
	req := providers.Request{
		Model: c.Model,
		Messages: []providers.Message{
			providers.System(promptsFor(lang).systemRole),
			providers.User(prompt),
		},
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	out, err := c.Provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty completion")
	}
	return out, nil
}

// clipRunes shortens s to at most limit runes. A non-positive limit disables clipping.
func clipRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
