package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/models"
)

// imageCaptionRe matches an uncaptioned image line followed by the HTML anchor
// span marker emits before the figure caption.
var imageCaptionRe = regexp.MustCompile(`(?s)!\[\]\(([^)]+)\)\s*\n\s*<span[^>]*>.*?</span>`)

// imageRefRe allows one level of brackets in the alt text, as in "see [12]".
var imageRefRe = regexp.MustCompile(`!\[((?:[^\[\]]|\[[^\]]*\])*)\]\(([^)\s]+)\)`)

// NormalizeImageCaptions merges "![](path)" + "<span ...></span>Caption" into
// "![Caption](path)". The caption runs to the next blank line or end of text.
func NormalizeImageCaptions(content string) string {
	var sb strings.Builder
	rest := content

	for {
		loc := imageCaptionRe.FindStringSubmatchIndex(rest)
		if loc == nil {
			sb.WriteString(rest)
			break
		}

		path := rest[loc[2]:loc[3]]
		after := rest[loc[1]:]
		end := strings.Index(after, "\n\n")
		if end < 0 {
			end = len(after)
		}
		caption := strings.TrimSpace(after[:end])

		sb.WriteString(rest[:loc[0]])
		if caption == "" {
			sb.WriteString(rest[loc[0]:loc[1]])
			rest = after
			continue
		}
		sb.WriteString("![" + caption + "](" + path + ")")
		rest = after[end:]
	}

	return sb.String()
}

// imageReference is one markdown image found in the extracted text
type imageReference struct {
	Caption string
	Path    string
}

// findImageReferences lists markdown images in order of appearance.
func findImageReferences(content string) []imageReference {
	var refs []imageReference
	for _, m := range imageRefRe.FindAllStringSubmatch(content, -1) {
		refs = append(refs, imageReference{Caption: strings.TrimSpace(m[1]), Path: m[2]})
	}
	return refs
}

// AnchorFigures replaces markdown images with "[Figure N]" anchors for the
// numbered ones and removes the rest.
func AnchorFigures(content string, numbered map[string]int) string {
	return imageRefRe.ReplaceAllStringFunc(content, func(match string) string {
		sub := imageRefRe.FindStringSubmatch(match)
		if n, ok := numbered[sub[2]]; ok {
			return fmt.Sprintf("[Figure %d]", n)
		}
		return ""
	})
}

// FormatTable renders rows as a markdown pipe table; the first row is the header.
func FormatTable(table models.Table) string {
	if len(table) == 0 || len(table[0]) == 0 {
		return ""
	}

	width := len(table[0])
	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = escapeCell(row[i])
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}

	writeRow(table[0])
	sb.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
	for _, row := range table[1:] {
		writeRow(row)
	}

	return strings.TrimRight(sb.String(), "\n")
}

func escapeCell(cell string) string {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), "\n", " ")
	return strings.ReplaceAll(cell, "|", `\|`)
}

// AppendTables adds the formatted tables after the text, separated by blank lines.
func AppendTables(text string, tables []models.Table) string {
	var parts []string
	if strings.TrimSpace(text) != "" {
		parts = append(parts, text)
	}
	for _, t := range tables {
		if md := FormatTable(t); md != "" {
			parts = append(parts, md)
		}
	}
	return strings.Join(parts, "\n\n")
}
