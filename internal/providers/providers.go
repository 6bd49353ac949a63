package providers

import (
	"context"
	"fmt"
)

// Message roles understood by every provider
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged chat message
type Message struct {
	Role    string
	Content string
}

// Request represents one completion call
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Image is raw image bytes plus the MIME type they were encoded with
type Image struct {
	Data     []byte
	MIMEType string
}

// VisionRequest represents one image description call
type VisionRequest struct {
	Model       string
	Prompt      string
	Image       Image
	Temperature float64
	MaxTokens   int
}

// Provider defines the interface for an LLM completion provider
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// VisionProvider defines the interface for a provider that can describe images
type VisionProvider interface {
	DescribeImage(ctx context.Context, req VisionRequest) (string, error)
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Result carries the outcome of one item in a batch of independent calls.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Err wraps a failure.
func Err[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

// IsOk reports whether the item succeeded.
func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

// PromptOnly flattens chat messages into one prompt for providers without a
// chat endpoint. The system message, if any, is returned separately.
func PromptOnly(messages []Message) (system, prompt string) {
	var user string
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		default:
			if user != "" {
				user += "\n\n"
			}
			user += m.Content
		}
	}
	return system, user
}

// ErrUnsupported is returned by the factory for unknown provider names.
func ErrUnsupported(name string) error {
	return fmt.Errorf("unsupported provider: %s", name)
}
