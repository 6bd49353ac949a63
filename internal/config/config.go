package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every setting the conversion pipeline and its collaborators need.
// It is read once by the CLI and passed down explicitly.
type Config struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaURL     string
	GeminiAPIKey  string

	CaptionProvider string
	CaptionModel    string

	MarkerURL    string
	MarkerUpload bool

	TargetLanguage     string
	MaxImages          int
	CaptionConcurrency int
	CaptionRPS         float64
	MaxInputChars      int
	FailurePolicy      string
	OutlineSections    bool
	PDFTextFallback    bool

	DataDir        string
	RequestTimeout time.Duration
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:        strings.ToLower(envOr("LLM_PROVIDER", "openai")),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_API_BASE"),
		OllamaURL:       ollamaURL(),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		MarkerURL:       strings.TrimRight(envOr("MARKER_URL", "http://localhost:8001"), "/"),
		TargetLanguage:  envOr("TARGET_LANGUAGE", "en"),
		FailurePolicy:   strings.ToLower(envOr("SECTION_FAILURE_POLICY", "skip")),
		DataDir:         envOr("DATA_DIR", "tmp"),
		CaptionProvider: strings.ToLower(os.Getenv("CAPTION_PROVIDER")),
		CaptionModel:    os.Getenv("CAPTION_MODEL"),
	}

	var err error
	if cfg.Temperature, err = floatEnv("TEMPERATURE", 0.7); err != nil {
		return nil, err
	}
	if cfg.MaxTokens, err = intEnv("MAX_TOKENS", 2000); err != nil {
		return nil, err
	}
	if cfg.MaxImages, err = intEnv("MAX_IMAGES", 4); err != nil {
		return nil, err
	}
	if cfg.CaptionConcurrency, err = intEnv("CAPTION_CONCURRENCY", 2); err != nil {
		return nil, err
	}
	if cfg.CaptionRPS, err = floatEnv("CAPTION_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.MaxInputChars, err = intEnv("MAX_INPUT_CHARS", 24000); err != nil {
		return nil, err
	}
	if cfg.MarkerUpload, err = boolEnv("MARKER_UPLOAD", false); err != nil {
		return nil, err
	}
	if cfg.OutlineSections, err = boolEnv("OUTLINE_SECTIONS", false); err != nil {
		return nil, err
	}
	if cfg.PDFTextFallback, err = boolEnv("PDF_TEXT_FALLBACK", true); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.Model = os.Getenv(modelEnv(cfg.Provider))
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if cfg.CaptionProvider == "" {
		cfg.CaptionProvider = cfg.Provider
	}
	if cfg.CaptionModel == "" {
		cfg.CaptionModel = DefaultVisionModel(cfg.CaptionProvider)
		if cfg.CaptionProvider == cfg.Provider && os.Getenv(modelEnv(cfg.Provider)) != "" {
			cfg.CaptionModel = cfg.Model
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings and bounds.
func (c *Config) Validate() error {
	for _, p := range []string{c.Provider, c.CaptionProvider} {
		switch p {
		case "openai", "ollama", "gemini":
		default:
			return fmt.Errorf("unsupported provider: %s", p)
		}
	}
	switch c.FailurePolicy {
	case "skip", "placeholder":
	default:
		return fmt.Errorf("unsupported SECTION_FAILURE_POLICY: %s (supported: skip, placeholder)", c.FailurePolicy)
	}
	if c.MaxImages < 0 {
		return fmt.Errorf("MAX_IMAGES must not be negative")
	}
	if c.CaptionConcurrency < 1 {
		return fmt.Errorf("CAPTION_CONCURRENCY must be at least 1")
	}
	return nil
}

// DefaultModel returns the completion model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o-mini"
	case "ollama":
		return "mistral-small3.2:24b"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return ""
	}
}

// DefaultVisionModel returns the captioning model used when none is configured.
func DefaultVisionModel(provider string) string {
	if provider == "openai" {
		return "gpt-4o"
	}
	return DefaultModel(provider)
}

func modelEnv(provider string) string {
	return strings.ToUpper(provider) + "_MODEL"
}

func ollamaURL() string {
	if u := os.Getenv("OLLAMA_URL"); u != "" {
		return u
	}
	if u := os.Getenv("OLLAMA_HOST"); u != "" {
		return u
	}
	return "http://localhost:11434"
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
