package testutils

import (
	"context"
	"fmt"

	"github.com/lucidjournal/lucidd/pkg/genai"
)

// TextCall records one Complete invocation.
type TextCall struct {
	System    string
	User      string
	MaxTokens int
}

// MockTextGenerator is a test text generator that records calls and returns
// configurable completions.
type MockTextGenerator struct {
	// Completions maps user text to the returned completion. Unmapped text
	// gets a deterministic derived string.
	Completions map[string]string

	// Fail causes Complete to return an error.
	Fail bool

	// Calls accumulates every Complete invocation.
	Calls []TextCall
}

func NewMockTextGenerator() *MockTextGenerator {
	return &MockTextGenerator{
		Completions: make(map[string]string),
	}
}

func (m *MockTextGenerator) Complete(_ context.Context, system, user string, maxTokens int) (string, error) {
	m.Calls = append(m.Calls, TextCall{System: system, User: user, MaxTokens: maxTokens})

	if m.Fail {
		return "", fmt.Errorf("%w: mock completion failure", genai.ErrGeneration)
	}

	if text, ok := m.Completions[user]; ok {
		return text, nil
	}

	return "completion of: " + user, nil
}

func (m *MockTextGenerator) Close() error {
	return nil
}

// ImageCall records one Generate invocation.
type ImageCall struct {
	Prompt string
	N      int
	Size   string
}

// MockImageGenerator is a test image generator that records calls and returns
// a configurable URL.
type MockImageGenerator struct {
	// URL is returned for every generated image.
	URL string

	// Fail causes Generate to return an error.
	Fail bool

	// Calls accumulates every Generate invocation.
	Calls []ImageCall
}

func NewMockImageGenerator() *MockImageGenerator {
	return &MockImageGenerator{
		URL: "https://images.example.com/dream.png",
	}
}

func (m *MockImageGenerator) Generate(_ context.Context, prompt string, n int, size string) ([]genai.Image, error) {
	m.Calls = append(m.Calls, ImageCall{Prompt: prompt, N: n, Size: size})

	if m.Fail {
		return nil, fmt.Errorf("%w: mock image failure", genai.ErrImageGeneration)
	}

	images := make([]genai.Image, n)
	for i := range images {
		images[i] = genai.Image{URL: m.URL}
	}
	return images, nil
}

func (m *MockImageGenerator) Close() error {
	return nil
}
