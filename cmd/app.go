package cmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/paper2blog/internal/artifacts"
	"github.com/lehigh-university-libraries/paper2blog/internal/blog"
	"github.com/lehigh-university-libraries/paper2blog/internal/caption"
	"github.com/lehigh-university-libraries/paper2blog/internal/config"
	"github.com/lehigh-university-libraries/paper2blog/internal/extract"
	"github.com/lehigh-university-libraries/paper2blog/internal/gemini"
	"github.com/lehigh-university-libraries/paper2blog/internal/ollama"
	"github.com/lehigh-university-libraries/paper2blog/internal/openai"
	"github.com/lehigh-university-libraries/paper2blog/internal/pdfdoc"
	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
	"github.com/lehigh-university-libraries/paper2blog/internal/webpage"
)

// llm is a provider that can both complete text and describe images
type llm interface {
	providers.Provider
	providers.VisionProvider
}

// app is everything a command needs to run conversions
type app struct {
	cfg      *config.Config
	files    *artifacts.Store
	pipeline *blog.Pipeline
}

func newProvider(name string, cfg *config.Config) (llm, error) {
	switch name {
	case "openai":
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	case "ollama":
		return ollama.New(cfg.OllamaURL), nil
	case "gemini":
		return gemini.New(cfg.GeminiAPIKey)
	default:
		return nil, providers.ErrUnsupported(name)
	}
}

// newApp loads the configuration and wires the conversion pipeline
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	completion, err := newProvider(cfg.Provider, cfg)
	if err != nil {
		return nil, err
	}
	vision := completion
	if cfg.CaptionProvider != cfg.Provider {
		if vision, err = newProvider(cfg.CaptionProvider, cfg); err != nil {
			return nil, err
		}
	}

	files, err := artifacts.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	policy, err := blog.ParseFailurePolicy(cfg.FailurePolicy)
	if err != nil {
		return nil, err
	}

	captioner := caption.NewService(vision, cfg.CaptionModel, cfg.CaptionRPS)
	extractor := extract.NewExtractor(
		extract.NewMarkerClient(cfg.MarkerURL, cfg.MarkerUpload),
		captioner,
		cfg.MaxImages,
		cfg.CaptionConcurrency,
	)

	opts := []blog.Option{
		blog.WithPageFetcher(webpage.NewFetcher(cfg.MaxImages)),
		blog.WithArtifacts(files),
		blog.WithMaxInputChars(cfg.MaxInputChars),
		blog.WithWriterOptions(
			blog.WithFailurePolicy(policy),
			blog.WithOutlineSections(cfg.OutlineSections),
		),
	}
	if cfg.PDFTextFallback {
		opts = append(opts, blog.WithTextFallback(pdfdoc.PlainText))
	}

	client := blog.Client{
		Provider:    completion,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
	pipeline := blog.NewPipeline(client, files.NewCachedExtractor(extractor), opts...)

	slog.Debug("Pipeline ready",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"caption_provider", cfg.CaptionProvider,
		"caption_model", cfg.CaptionModel,
		"marker_url", cfg.MarkerURL,
		"data_dir", cfg.DataDir,
		"failure_policy", policy)

	return &app{cfg: cfg, files: files, pipeline: pipeline}, nil
}
