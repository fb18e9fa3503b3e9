// Package genai provides the text and image generation interfaces used to
// enrich dream records with analysis text and a generated image.
package genai

import (
	"context"
	"errors"
)

var (
	// ErrGeneration is returned when text generation fails.
	ErrGeneration = errors.New("text generation failed")

	// ErrImageGeneration is returned when image generation fails.
	ErrImageGeneration = errors.New("image generation failed")
)

// Image is a generated image, referenced by URL.
type Image struct {
	URL string
}

// TextGenerator produces a completion for a system instruction and user text.
type TextGenerator interface {
	// Complete generates at most maxTokens of text.
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)

	// Close releases any resources held by the generator.
	Close() error
}

// ImageGenerator produces n images of the given size from a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, n int, size string) ([]Image, error)

	// Close releases any resources held by the generator.
	Close() error
}
