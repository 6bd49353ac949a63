package blog

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/paper2blog/internal/models"
	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
	"github.com/lehigh-university-libraries/paper2blog/internal/sections"
)

const (
	// DefaultStyleGuide is the tone used when a section input does not name one.
	DefaultStyleGuide = "friendly and conversational"

	// InitialSummary seeds the running context before the first section.
	InitialSummary = "This blog introduces a paper on large language models (LLMs)."

	summaryExcerptRunes = 100
)

// SectionInput is what a single section generation is conditioned on.
// It is either RawText or StructuredInput.
type SectionInput interface {
	sectionInput()
}

// RawText is bare paper text; context and style come from the writer.
type RawText string

// StructuredInput carries everything a section prompt needs.
type StructuredInput struct {
	Text       string
	Context    string
	StyleGuide string
}

func (RawText) sectionInput()         {}
func (StructuredInput) sectionInput() {}

// Resolve turns any SectionInput into a StructuredInput. RawText takes the
// running context and the default style guide; empty structured fields are
// filled the same way.
func Resolve(in SectionInput, runningContext string) StructuredInput {
	var s StructuredInput
	switch v := in.(type) {
	case RawText:
		s = StructuredInput{Text: string(v)}
	case StructuredInput:
		s = v
	case *StructuredInput:
		if v != nil {
			s = *v
		}
	}
	if s.Context == "" {
		s.Context = runningContext
	}
	if s.StyleGuide == "" {
		s.StyleGuide = DefaultStyleGuide
	}
	return s
}

// GenerationContext is the running state threaded through the writer loop.
type GenerationContext struct {
	PreviousSectionSummary string
	CurrentOutlineSection  string
}

// NewGenerationContext returns the state at the start of a conversion.
func NewGenerationContext() GenerationContext {
	return GenerationContext{PreviousSectionSummary: InitialSummary}
}

// Advance records a successfully generated section.
func (g *GenerationContext) Advance(section string) {
	if utf8.RuneCountInString(section) > summaryExcerptRunes {
		g.PreviousSectionSummary = "Previous section discussed: " + string([]rune(section)[:summaryExcerptRunes]) + "..."
		return
	}
	g.PreviousSectionSummary = section
}

// FailurePolicy decides what happens to a chunk whose generation failed.
type FailurePolicy int

const (
	// SkipFailed drops the chunk and keeps the context unchanged.
	SkipFailed FailurePolicy = iota
	// PlaceholderOnFailure inserts a visible note where the section would be.
	PlaceholderOnFailure
)

// ParseFailurePolicy maps a configuration value to a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return SkipFailed, nil
	case "placeholder":
		return PlaceholderOnFailure, nil
	default:
		return SkipFailed, fmt.Errorf("unsupported failure policy: %s", s)
	}
}

func (p FailurePolicy) String() string {
	if p == PlaceholderOnFailure {
		return "placeholder"
	}
	return "skip"
}

// SectionWriter drafts one blog section per chunk of paper text.
type SectionWriter struct {
	client          Client
	policy          FailurePolicy
	outlineSections bool
	styleGuide      string
}

// WriterOption configures a SectionWriter.
type WriterOption func(*SectionWriter)

// WithFailurePolicy sets how failed chunks are handled.
func WithFailurePolicy(p FailurePolicy) WriterOption {
	return func(w *SectionWriter) { w.policy = p }
}

// WithOutlineSections enables per-chunk outline classification and headings.
func WithOutlineSections(enabled bool) WriterOption {
	return func(w *SectionWriter) { w.outlineSections = enabled }
}

// WithStyleGuide overrides the default tone.
func WithStyleGuide(style string) WriterOption {
	return func(w *SectionWriter) { w.styleGuide = style }
}

// NewSectionWriter creates a writer.
func NewSectionWriter(client Client, opts ...WriterOption) *SectionWriter {
	w := &SectionWriter{client: client}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteRequest is the input of one writer run.
type WriteRequest struct {
	Chunks   []sections.TextChunk
	Outline  string
	Images   []models.ImageInfo
	Language string
}

// Write drafts every chunk in order and joins the sections with blank lines.
// A failed chunk never aborts the run; ErrPipelineFailure is returned only
// when no section could be generated at all.
func (w *SectionWriter) Write(ctx context.Context, req WriteRequest) (string, error) {
	gctx := NewGenerationContext()
	figures := formatFigures(req.Images)

	var (
		parts     []string
		succeeded int
		lastErr   error
	)
	for i, chunk := range req.Chunks {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrPipelineFailure, err)
		}

		target := gctx.CurrentOutlineSection
		if w.outlineSections {
			target = w.classify(ctx, chunk.Body, req.Outline, gctx.CurrentOutlineSection, req.Language)
		}

		in := Resolve(StructuredInput{Text: chunk.Body, StyleGuide: w.styleGuide}, gctx.PreviousSectionSummary)
		res := w.generate(ctx, sectionPromptData{
			input:   in,
			label:   chunk.Label,
			outline: req.Outline,
			target:  target,
			figures: figures,
			lang:    req.Language,
		})

		if !res.IsOk() {
			lastErr = res.Err
			slog.Warn("Section generation failed", "section", i+1, "label", chunk.Label, "policy", w.policy, "error", res.Err)
			if w.policy != PlaceholderOnFailure {
				continue
			}
		}

		if w.outlineSections && target != gctx.CurrentOutlineSection {
			parts = append(parts, sectionHeading(target, req.Language))
			gctx.CurrentOutlineSection = target
		}

		if !res.IsOk() {
			parts = append(parts, fmt.Sprintf("> [Section %d could not be generated: %v]", i+1, res.Err))
			continue
		}

		parts = append(parts, res.Value)
		gctx.Advance(res.Value)
		succeeded++
		slog.Debug("Generated section", "section", i+1, "label", chunk.Label, "chars", len(res.Value))
	}

	if succeeded == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("%w: no section could be generated: %v", ErrPipelineFailure, lastErr)
		}
		return "", fmt.Errorf("%w: no text to write about", ErrPipelineFailure)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (w *SectionWriter) generate(ctx context.Context, d sectionPromptData) providers.Result[string] {
	out, err := w.client.complete(ctx, d.lang, sectionPrompt(d))
	if err != nil {
		return providers.Err[string](err)
	}
	return providers.Ok(out)
}

// classify asks which outline part a chunk belongs to. Failures and
// unrecognized answers keep the current part, or Introduction when none is
// open yet.
func (w *SectionWriter) classify(ctx context.Context, chunk, outline, current, lang string) string {
	fallback := current
	if fallback == "" {
		fallback = OutlineSections[0]
	}

	answer, err := w.client.complete(ctx, lang, classifyPrompt(chunk, outline, current, lang))
	if err != nil {
		slog.Warn("Outline classification failed", "error", err)
		return fallback
	}
	if label, ok := matchOutlineLabel(answer); ok {
		return label
	}
	slog.Debug("Unrecognized outline label", "answer", answer, "using", fallback)
	return fallback
}

var outlineLabelNoiseRe = regexp.MustCompile(`^[\s#*\-"'\d.)(:]+|[\s*"'.:!]+$`)

// matchOutlineLabel accepts answers such as "Method", "3. method." or
// "**Experiments**", and the Chinese heading names.
func matchOutlineLabel(answer string) (string, bool) {
	line := strings.TrimSpace(strings.SplitN(strings.TrimSpace(answer), "\n", 2)[0])
	line = outlineLabelNoiseRe.ReplaceAllString(line, "")
	line = strings.ToLower(strings.TrimSpace(line))
	if line == "" {
		return "", false
	}
	for _, label := range OutlineSections {
		if line == strings.ToLower(label) || line == chineseSectionHeadings[label] {
			return label, true
		}
	}
	for _, label := range OutlineSections {
		if first := strings.Fields(line)[0]; first == strings.ToLower(label) {
			return label, true
		}
	}
	return "", false
}
