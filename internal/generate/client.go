// Package generate issues image generation requests to Gemini and
// orchestrates batch fan-out over a session's slot board.
package generate

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/album-studio/internal/photo"
)

// Generator produces one styled look from subject photos, vibe photos, and
// free-text instructions. Implementations may fail with an arbitrary error;
// callers never retry automatically.
type Generator interface {
	Generate(ctx context.Context, subject, vibe []photo.Encoded, instructions string) (photo.Encoded, error)
}

// GeminiGenerator calls a Gemini image model through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates the underlying genai client for the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiGenerator wraps a genai client for the given image model.
// An empty model falls back to GetModelName().
func NewGeminiGenerator(client *genai.Client, model string) *GeminiGenerator {
	if model == "" {
		model = GetModelName()
	}
	return &GeminiGenerator{client: client, model: model}
}

const basePrompt = "Create one photorealistic styled portrait of the person/people in the subject photos. " +
	"Match the mood, palette, lighting, and overall aesthetic of the style reference photos. " +
	"Keep the subjects clearly recognizable."

// Generate sends every subject photo, every vibe photo, and the instruction
// text in a single multimodal request and returns the generated image.
func (g *GeminiGenerator) Generate(ctx context.Context, subject, vibe []photo.Encoded, instructions string) (photo.Encoded, error) {
	startTime := time.Now()
	log.Info().
		Str("model", g.model).
		Int("subject_photos", len(subject)).
		Int("vibe_photos", len(vibe)).
		Msg("Sending generation request to Gemini")

	var parts []*genai.Part
	for _, img := range subject {
		part, err := inlinePart(img)
		if err != nil {
			return "", fmt.Errorf("subject photo: %w", err)
		}
		parts = append(parts, part)
	}
	for _, img := range vibe {
		part, err := inlinePart(img)
		if err != nil {
			return "", fmt.Errorf("vibe photo: %w", err)
		}
		parts = append(parts, part)
	}

	prompt := basePrompt
	if instructions != "" {
		prompt += "\n\nAdditional instructions: " + instructions
	}
	parts = append(parts, &genai.Part{Text: prompt})

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Info().
					Int("output_bytes", len(part.InlineData.Data)).
					Str("output_mime", part.InlineData.MIMEType).
					Dur("duration", time.Since(startTime)).
					Msg("Generation complete")
				return photo.FromBytes(part.InlineData.MIMEType, part.InlineData.Data), nil
			}
		}
	}

	return "", fmt.Errorf("no image returned in response")
}

// inlinePart converts an encoded photo into an inline-data request part.
func inlinePart(img photo.Encoded) (*genai.Part, error) {
	data, err := img.Bytes()
	if err != nil {
		return nil, err
	}
	mimeType := img.MIMEType()
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			MIMEType: mimeType,
			Data:     data,
		},
	}, nil
}
