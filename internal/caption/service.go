package caption

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
	"golang.org/x/time/rate"
)

// maxContextChars bounds how much paper text is sent alongside each image
const maxContextChars = 4000

// Service generates figure captions with a vision-capable model
type Service struct {
	provider providers.VisionProvider
	model    string
	limiter  *rate.Limiter
}

// NewService creates a caption service. rps <= 0 disables rate limiting.
func NewService(provider providers.VisionProvider, model string, rps float64) *Service {
	s := &Service{provider: provider, model: model}
	if rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return s
}

// Caption describes one figure, using the paper text as context
func (s *Service) Caption(ctx context.Context, contextText string, image []byte, language string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("failed waiting for caption rate limiter: %w", err)
		}
	}

	text, err := s.provider.DescribeImage(ctx, providers.VisionRequest{
		Model:       s.model,
		Prompt:      buildCaptionPrompt(contextText, language),
		Image:       providers.Image{Data: image, MIMEType: http.DetectContentType(image)},
		Temperature: 0.2,
		MaxTokens:   200,
	})
	if err != nil {
		return "", fmt.Errorf("failed to caption image: %w", err)
	}

	caption := cleanCaption(text)
	if caption == "" {
		return "", fmt.Errorf("caption model returned empty text")
	}

	slog.Debug("Generated caption", "model", s.model, "length", len(caption))
	return caption, nil
}

func buildCaptionPrompt(contextText, language string) string {
	contextText = clip(strings.TrimSpace(contextText), maxContextChars)

	if language == "zh" {
		return `你正在为一篇学术论文中的插图撰写图注。

请结合下面的论文内容，用一句简洁的中文描述这张图展示了什么（不超过40个字）。
只输出图注本身，不要添加"图1"之类的编号，也不要添加任何解释。

论文内容：
` + contextText
	}

	return `You are writing a caption for a figure taken from an academic paper.

Using the paper text below as context, describe in one concise sentence (at most 25 words) what the figure shows.
Output ONLY the caption. Do not prefix it with "Figure 1" or similar labels and do not add commentary.

Paper text:
` + contextText
}

// cleanCaption keeps the first line and strips labels models tend to add.
func cleanCaption(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	for _, prefix := range []string{"Caption:", "caption:", "图注：", "图注:"} {
		text = strings.TrimPrefix(text, prefix)
	}
	text = strings.Trim(strings.TrimSpace(text), `"“”`)
	// A colon would break the "N: caption" figure token.
	text = strings.ReplaceAll(text, ":", " -")
	return strings.TrimSpace(text)
}

func clip(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
