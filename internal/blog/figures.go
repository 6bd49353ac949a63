package blog

import (
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/models"
)

// FigureToken returns the identifier a caption is referenced by: the text
// before the first colon, or the whole caption when there is none.
func FigureToken(caption string) string {
	if i := strings.Index(caption, ":"); i >= 0 {
		return strings.TrimSpace(caption[:i])
	}
	return strings.TrimSpace(caption)
}

// PlaceFigures replaces each [Figure <token>] placeholder with the figure's
// markdown. Placeholders without a matching image are left untouched. Rendered
// markdown alt text reads "Figure N: caption", so a second pass finds nothing
// to replace.
func PlaceFigures(text string, images []models.ImageInfo) string {
	for _, img := range images {
		token := FigureToken(img.Caption)
		if token == "" || img.Markdown == "" {
			continue
		}
		text = strings.ReplaceAll(text, "[Figure "+token+"]", img.Markdown)
	}
	return text
}
