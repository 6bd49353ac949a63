package blog

import (
	"context"
	"fmt"
	"log/slog"
)

// OutlineGenerator produces the free-text outline the writer uses as context.
type OutlineGenerator struct {
	client        Client
	maxInputChars int
}

// NewOutlineGenerator creates an outline generator. The paper text is
// clipped to maxInputChars runes before it is sent.
func NewOutlineGenerator(client Client, maxInputChars int) *OutlineGenerator {
	return &OutlineGenerator{client: client, maxInputChars: maxInputChars}
}

// Generate returns an outline of the paper following OutlineSections.
func (g *OutlineGenerator) Generate(ctx context.Context, text, lang string) (string, error) {
	outline, err := g.client.complete(ctx, lang, outlinePrompt(clipRunes(text, g.maxInputChars), lang))
	if err != nil {
		return "", fmt.Errorf("failed to generate outline: %w", err)
	}
	slog.Debug("Generated outline", "chars", len(outline))
	return outline, nil
}
