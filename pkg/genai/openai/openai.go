// Package openai implements pkg/genai's generators against OpenAI's chat
// completions and image generation endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lucidjournal/lucidd/pkg/genai"
)

const (
	// DefaultTextModel is the default chat completion model.
	DefaultTextModel = "gpt-4o-mini"

	// DefaultImageModel is the default image generation model.
	DefaultImageModel = "dall-e-2"

	// DefaultBaseURL is the default OpenAI API URL.
	DefaultBaseURL = "https://api.openai.com"
)

// Config holds configuration for the OpenAI generators.
type Config struct {
	// BaseURL overrides the API URL, for compatible servers.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// APIKey is the bearer token sent with each request.
	APIKey string

	// TextModel is the chat model. Defaults to DefaultTextModel if empty.
	TextModel string

	// ImageModel is the image model. Defaults to DefaultImageModel if empty.
	ImageModel string
}

// Generator implements both genai.TextGenerator and genai.ImageGenerator.
type Generator struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	httpClient *http.Client
}

// NewGenerator creates a new OpenAI-backed generator.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	textModel := cfg.TextModel
	if textModel == "" {
		textModel = DefaultTextModel
	}

	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = DefaultImageModel
	}

	return &Generator{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		textModel:  textModel,
		imageModel: imageModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete generates a chat completion for the given system instruction and
// user text.
func (g *Generator) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	reqBody := chatRequest{
		Model: g.textModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	}

	var chatResp chatResponse
	if err := g.post(ctx, "/v1/chat/completions", reqBody, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", genai.ErrGeneration, err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: openai error: %s", genai.ErrGeneration, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", genai.ErrGeneration)
	}

	return chatResp.Choices[0].Message.Content, nil
}

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate produces n images of the given size from a prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, n int, size string) ([]genai.Image, error) {
	reqBody := imageRequest{
		Model:  g.imageModel,
		Prompt: prompt,
		N:      n,
		Size:   size,
	}

	var imgResp imageResponse
	if err := g.post(ctx, "/v1/images/generations", reqBody, &imgResp); err != nil {
		return nil, fmt.Errorf("%w: %v", genai.ErrImageGeneration, err)
	}

	if imgResp.Error != nil {
		return nil, fmt.Errorf("%w: openai error: %s", genai.ErrImageGeneration, imgResp.Error.Message)
	}
	if len(imgResp.Data) == 0 {
		return nil, fmt.Errorf("%w: openai returned no images", genai.ErrImageGeneration)
	}

	images := make([]genai.Image, len(imgResp.Data))
	for i, d := range imgResp.Data {
		images[i] = genai.Image{URL: d.URL}
	}

	return images, nil
}

// post sends a JSON POST to an API endpoint and decodes the reply.
func (g *Generator) post(ctx context.Context, endpoint string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var (
	_ genai.TextGenerator  = (*Generator)(nil)
	_ genai.ImageGenerator = (*Generator)(nil)
)
