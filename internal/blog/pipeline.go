package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/paper2blog/internal/extract"
	"github.com/lehigh-university-libraries/paper2blog/internal/models"
	"github.com/lehigh-university-libraries/paper2blog/internal/sections"
)

// PaperExtractor pulls text and figures out of a local document.
type PaperExtractor interface {
	Extract(ctx context.Context, path, language string, sink extract.ImageSink) extract.Content
}

// PageFetcher pulls text and figures out of a web page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, sink extract.ImageSink) (extract.Content, error)
}

// ArtifactStore persists figures and finished conversions.
type ArtifactStore interface {
	ImageSink(id string) (extract.ImageSink, error)
	SaveConversion(id, originalFilename string, resp *models.ConversionResponse) (string, error)
}

// TextFallback reads plain text from a local document when extraction came back empty.
type TextFallback func(path string) (string, error)

// Source is one conversion input: a local document path or a web URL.
type Source struct {
	Path             string
	URL              string
	OriginalFilename string
	Language         string
}

func (s Source) String() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// Pipeline runs a full paper to blog conversion.
type Pipeline struct {
	extractor    PaperExtractor
	pages        PageFetcher
	textFallback TextFallback
	artifacts    ArtifactStore

	outline *OutlineGenerator
	writer  *SectionWriter
	post    *PostProcessor
	titles  *TitleTranslator

	maxInputChars int
	chunkCount    int
	newID         func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPageFetcher enables URL sources.
func WithPageFetcher(f PageFetcher) Option {
	return func(p *Pipeline) { p.pages = f }
}

// WithTextFallback sets the plain-text reader used when extraction is empty.
func WithTextFallback(f TextFallback) Option {
	return func(p *Pipeline) { p.textFallback = f }
}

// WithArtifacts stores figures and the finished markdown.
func WithArtifacts(s ArtifactStore) Option {
	return func(p *Pipeline) { p.artifacts = s }
}

// WithMaxInputChars bounds the paper text sent in any single prompt.
func WithMaxInputChars(n int) Option {
	return func(p *Pipeline) { p.maxInputChars = n }
}

// WithChunkCount sets the number of positional chunks used when no headers are found.
func WithChunkCount(n int) Option {
	return func(p *Pipeline) { p.chunkCount = n }
}

// WithWriterOptions configures the section writer.
func WithWriterOptions(opts ...WriterOption) Option {
	return func(p *Pipeline) {
		for _, opt := range opts {
			opt(p.writer)
		}
	}
}

// WithIDGenerator replaces the conversion id generator.
func WithIDGenerator(f func() string) Option {
	return func(p *Pipeline) { p.newID = f }
}

// NewPipeline wires the generation stages around a completion client.
func NewPipeline(client Client, extractor PaperExtractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:     extractor,
		writer:        NewSectionWriter(client),
		post:          NewPostProcessor(client),
		titles:        NewTitleTranslator(client),
		maxInputChars: 24000,
		chunkCount:    sections.DefaultChunkCount,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.outline = NewOutlineGenerator(client, p.maxInputChars)
	return p
}

// Convert runs the pipeline for src. Failures are reported in the
// response's Error field; figures found before the failure are still listed.
func (p *Pipeline) Convert(ctx context.Context, src Source) *models.ConversionResponse {
	start := time.Now()
	lang := NormalizeLanguage(src.Language)
	resp := &models.ConversionResponse{
		ID:       p.newID(),
		Language: lang,
		Images:   []models.ImageInfo{},
		Tags:     []string{},
	}
	slog.Info("Starting conversion", "id", resp.ID, "source", src.String(), "language", lang)

	var sink extract.ImageSink
	if p.artifacts != nil {
		s, err := p.artifacts.ImageSink(resp.ID)
		if err != nil {
			slog.Warn("Figure storage unavailable", "id", resp.ID, "error", err)
		} else {
			sink = s
		}
	}

	content, err := p.content(ctx, src, lang, sink)
	if content.Images != nil {
		resp.Images = content.Images
	}
	if err == nil {
		var post models.BlogPost
		post, err = p.generate(ctx, content, lang)
		if err == nil {
			resp.Title = post.Title
			resp.Content = post.Content
			resp.Summary = post.Summary
			resp.Tags = post.Tags
		}
	}
	if err != nil {
		slog.Error("Conversion failed", "id", resp.ID, "source", src.String(), "error", err)
		resp.Error = err.Error()
	}

	if p.artifacts != nil {
		path, saveErr := p.artifacts.SaveConversion(resp.ID, src.OriginalFilename, resp)
		if saveErr != nil {
			slog.Warn("Failed to save conversion", "id", resp.ID, "error", saveErr)
		} else {
			resp.MarkdownPath = path
		}
	}

	slog.Info("Conversion finished",
		"id", resp.ID,
		"title", resp.Title,
		"images", len(resp.Images),
		"failed", resp.Error != "",
		"duration", time.Since(start))
	return resp
}

func (p *Pipeline) content(ctx context.Context, src Source, lang string, sink extract.ImageSink) (extract.Content, error) {
	var content extract.Content
	switch {
	case src.URL != "":
		if p.pages == nil {
			return content, fmt.Errorf("%w: url sources are not enabled", ErrPipelineFailure)
		}
		var err error
		content, err = p.pages.Fetch(ctx, src.URL, sink)
		if err != nil {
			return content, fmt.Errorf("%w: failed to fetch page: %v", ErrPipelineFailure, err)
		}
	case src.Path != "":
		content = p.extractor.Extract(ctx, src.Path, lang, sink)
		if strings.TrimSpace(content.Text) == "" && p.textFallback != nil {
			text, err := p.textFallback(src.Path)
			if err != nil {
				slog.Warn("Plain-text fallback failed", "path", src.Path, "error", err)
			} else {
				slog.Info("Using plain-text fallback", "path", src.Path, "chars", len(text))
				content.Text = text
			}
		}
	default:
		return content, fmt.Errorf("%w: no document or url given", ErrPipelineFailure)
	}

	if strings.TrimSpace(content.Text) == "" {
		return content, fmt.Errorf("%w: no text could be extracted from %s", ErrPipelineFailure, src.String())
	}
	return content, nil
}

func (p *Pipeline) generate(ctx context.Context, content extract.Content, lang string) (models.BlogPost, error) {
	chunks := p.chunks(content.Text)
	if len(chunks) == 0 {
		return models.BlogPost{}, fmt.Errorf("%w: no usable text after section splitting", ErrPipelineFailure)
	}

	outline, err := p.outline.Generate(ctx, content.Text, lang)
	if err != nil {
		slog.Warn("Continuing without outline", "error", err)
	}

	draft, err := p.writer.Write(ctx, WriteRequest{
		Chunks:   chunks,
		Outline:  outline,
		Images:   content.Images,
		Language: lang,
	})
	if err != nil {
		return models.BlogPost{}, err
	}

	body, tags := p.post.Process(ctx, draft, lang)
	body = PlaceFigures(body, content.Images)

	title, err := p.titles.Translate(ctx, content.Text, lang)
	if err != nil {
		slog.Warn("Title translation failed", "error", err)
		title = ExtractTitle(body)
	}
	if title == "" {
		title = untitled
	}

	return models.BlogPost{
		Title:   title,
		Content: body,
		Summary: ExtractSummary(body),
		Tags:    tags,
	}, nil
}

// chunks classifies the text into sections, falling back to positional
// chunks when no header is recognized.
func (p *Pipeline) chunks(text string) []sections.TextChunk {
	chunks := sections.Classify(text)
	if len(chunks) == 0 {
		slog.Info("No section headers recognized, using positional chunks", "count", p.chunkCount)
		chunks = sections.FallbackChunks(text, p.chunkCount)
	} else {
		slog.Debug("Classified sections", "count", len(chunks))
	}

	out := chunks[:0]
	for _, c := range chunks {
		c.Body = clipRunes(c.Body, p.maxInputChars)
		if strings.TrimSpace(c.Body) != "" {
			out = append(out, c)
		}
	}
	return out
}

// IsPipelineFailure reports whether err marks a failed conversion.
func IsPipelineFailure(err error) bool {
	return errors.Is(err, ErrPipelineFailure)
}
