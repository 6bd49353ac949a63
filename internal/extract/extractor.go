package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/models"
	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
	"golang.org/x/sync/errgroup"
)

// MinImageSide is the smallest width and height kept; smaller images are icons or decorations.
const MinImageSide = 100

// DocumentConverter turns a document into markdown plus raw images
type DocumentConverter interface {
	Convert(ctx context.Context, path string) (*MarkerResponse, error)
}

// Captioner describes a figure given the surrounding paper text
type Captioner interface {
	Caption(ctx context.Context, contextText string, image []byte, language string) (string, error)
}

// ImageSink stores a retained figure and returns the URL it is served from
type ImageSink interface {
	SaveImage(name string, data []byte) (string, error)
}

// Content is what extraction hands to the rest of the pipeline
type Content struct {
	Text   string
	Images []models.ImageInfo
	Tables []models.Table
}

// Extractor pulls text, figures and tables out of a paper
type Extractor struct {
	converter   DocumentConverter
	captioner   Captioner
	maxImages   int
	concurrency int
}

// NewExtractor creates an extractor. concurrency bounds parallel caption calls.
func NewExtractor(converter DocumentConverter, captioner Captioner, maxImages, concurrency int) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{
		converter:   converter,
		captioner:   captioner,
		maxImages:   maxImages,
		concurrency: concurrency,
	}
}

type candidate struct {
	name            string
	data            []byte
	originalCaption string
}

// Extract converts the document at path. Conversion failures are logged and
// produce empty content; they are never returned to the caller.
func (e *Extractor) Extract(ctx context.Context, path, language string, sink ImageSink) Content {
	resp, err := e.converter.Convert(ctx, path)
	if err != nil {
		slog.Warn("Document conversion failed", "path", path, "error", err)
		return Content{}
	}
	if !resp.Success {
		slog.Warn("Document conversion reported failure", "path", path, "error", resp.Error)
		return Content{}
	}

	text := NormalizeImageCaptions(resp.Text())
	candidates := orderedCandidates(text, resp.Images)
	images := e.captionImages(ctx, text, language, candidates)

	numbered := make(map[string]int, len(images))
	infos := make([]models.ImageInfo, 0, len(images))
	for _, img := range images {
		n := len(infos) + 1
		url := img.name
		if sink != nil {
			saved, err := sink.SaveImage(img.name, img.data)
			if err != nil {
				slog.Warn("Failed to store figure, dropping it", "image", img.name, "error", err)
				continue
			}
			url = saved
		}
		numbered[img.name] = n
		infos = append(infos, NewImageInfo(n, img.caption, url))
	}

	text = AnchorFigures(text, numbered)
	text = AppendTables(text, resp.Tables)

	slog.Info("Extracted document content",
		"path", path,
		"text_length", len(text),
		"images_returned", len(resp.Images),
		"images_kept", len(infos),
		"tables", len(resp.Tables))

	return Content{Text: text, Images: infos, Tables: resp.Tables}
}

// FigureCaption formats the caption stored on ImageInfo; the number before
// the colon is the placeholder token the writer is told to use.
func FigureCaption(n int, caption string) string {
	return fmt.Sprintf("%d: %s", n, caption)
}

// NewImageInfo builds figure n with its placeholder caption and markdown.
func NewImageInfo(n int, caption, url string) models.ImageInfo {
	return models.ImageInfo{
		Caption:  FigureCaption(n, caption),
		URL:      url,
		Markdown: fmt.Sprintf("![Figure %d: %s](%s)", n, caption, url),
	}
}

type captioned struct {
	candidate
	caption string
}

// captionImages decodes, filters and caps the candidates, then captions them
// concurrently. Images whose caption fails are dropped; order is kept.
func (e *Extractor) captionImages(ctx context.Context, text, language string, candidates []candidate) []captioned {
	var kept []candidate
	for _, c := range candidates {
		if e.maxImages >= 0 && len(kept) >= e.maxImages {
			break
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(c.data))
		if err != nil {
			slog.Debug("Skipping undecodable image", "image", c.name, "error", err)
			continue
		}
		if cfg.Width < MinImageSide || cfg.Height < MinImageSide {
			slog.Debug("Skipping small image", "image", c.name, "width", cfg.Width, "height", cfg.Height)
			continue
		}
		kept = append(kept, c)
	}

	results := make([]providers.Result[string], len(kept))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, c := range kept {
		g.Go(func() error {
			captionContext := text
			if c.originalCaption != "" {
				captionContext = "Original caption: " + c.originalCaption + "\n\n" + text
			}
			caption, err := e.captioner.Caption(ctx, captionContext, c.data, language)
			if err != nil {
				results[i] = providers.Err[string](err)
				return nil
			}
			results[i] = providers.Ok(caption)
			return nil
		})
	}
	_ = g.Wait()

	var out []captioned
	for i, r := range results {
		if !r.IsOk() {
			slog.Warn("Captioning failed, dropping image", "image", kept[i].name, "error", r.Err)
			continue
		}
		out = append(out, captioned{candidate: kept[i], caption: r.Value})
	}
	return out
}

// orderedCandidates decodes the service images, ordered by where they are
// referenced in the markdown and then by name.
func orderedCandidates(text string, images map[string]string) []candidate {
	position := make(map[string]int)
	captions := make(map[string]string)
	for i, ref := range findImageReferences(text) {
		if _, seen := position[ref.Path]; !seen {
			position[ref.Path] = i
			captions[ref.Path] = ref.Caption
		}
	}

	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		pi, iok := position[names[i]]
		pj, jok := position[names[j]]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})

	var out []candidate
	for _, name := range names {
		data, err := decodeBase64(images[name])
		if err != nil {
			slog.Warn("Skipping image with invalid base64", "image", name, "error", err)
			continue
		}
		out = append(out, candidate{name: name, data: data, originalCaption: captions[name]})
	}
	return out
}

func decodeBase64(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}
