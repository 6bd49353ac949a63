package blog

import (
	"context"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/paper2blog/internal/providers"
)

// fakeProvider answers each completion by prompt kind.
type fakeProvider struct {
	mu       sync.Mutex
	prompts  []string
	systems  []string
	outline  func(prompt string) (string, error)
	classify func(prompt string) (string, error)
	section  func(prompt string) (string, error)
	post     func(prompt string) (string, error)
	title    func(prompt string) (string, error)
}

func (f *fakeProvider) Complete(_ context.Context, req providers.Request) (string, error) {
	system, prompt := providers.PromptOnly(req.Messages)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.systems = append(f.systems, system)
	f.mu.Unlock()

	var handler func(string) (string, error)
	switch {
	case strings.Contains(prompt, "Write a blog outline"), strings.Contains(prompt, "请为下面这篇论文写一份博客大纲"):
		handler = f.outline
	case strings.Contains(prompt, "Which part of the blog outline"), strings.Contains(prompt, "最适合放在博客大纲的哪一部分"):
		handler = f.classify
	case strings.Contains(prompt, "Turn the following part of a research paper"), strings.Contains(prompt, "请把下面这部分论文内容改写成"):
		handler = f.section
	case strings.Contains(prompt, "Review and polish"), strings.Contains(prompt, "请审阅并润色"):
		handler = f.post
	case strings.Contains(prompt, "Reply with the paper's title"):
		handler = f.title
	}
	if handler == nil {
		return "", nil
	}
	return handler(prompt)
}

// promptsContaining returns the recorded prompts that contain substr, in call order.
func (f *fakeProvider) promptsContaining(substr string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.prompts {
		if strings.Contains(p, substr) {
			out = append(out, p)
		}
	}
	return out
}

func testClient(p providers.Provider) Client {
	return Client{Provider: p, Model: "test-model", Temperature: 0.7, MaxTokens: 2000}
}

// sectionBody returns the paper text a section prompt was built from.
func sectionBody(prompt string) string {
	i := strings.LastIndex(prompt, "Paper section")
	if i < 0 {
		return ""
	}
	rest := prompt[i:]
	if j := strings.Index(rest, "\n"); j >= 0 {
		return rest[j+1:]
	}
	return ""
}
