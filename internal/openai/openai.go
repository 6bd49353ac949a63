package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI is a provider for OpenAI and OpenAI-compatible endpoints
type OpenAI struct {
	client openai.Client
}

// New returns a new OpenAI provider. baseURL may be empty.
func New(apiKey, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAI{client: openai.NewClient(opts...)}, nil
}

// Complete sends the chat messages and returns the first choice
func (o *OpenAI) Complete(ctx context.Context, req providers.Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case providers.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case providers.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	return o.create(ctx, req.Model, msgs, req.Temperature, req.MaxTokens)
}

// DescribeImage sends the prompt and the image as a data URL
func (o *OpenAI) DescribeImage(ctx context.Context, req providers.VisionRequest) (string, error) {
	mimeType := req.Image.MIMEType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(req.Image.Data)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		}),
	}

	return o.create(ctx, req.Model, msgs, req.Temperature, req.MaxTokens)
}

func (o *OpenAI) create(ctx context.Context, model string, msgs []openai.ChatCompletionMessageParamUnion, temperature float64, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    msgs,
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from OpenAI")
	}

	slog.Debug("OpenAI completion finished",
		"model", model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
