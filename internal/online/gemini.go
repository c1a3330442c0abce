package online

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"google.golang.org/genai"

	"codeberg.org/snonux/parlo/internal/translation"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiBackend translates with a Gemini model through the Gemini API.
type GeminiBackend struct {
	apiKey string
	model  string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

// NewGeminiBackend creates a Gemini backend. The API client is created on
// first use.
func NewGeminiBackend(apiKey, model string) *GeminiBackend {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiBackend{apiKey: apiKey, model: model}
}

// Name returns the backend name
func (b *GeminiBackend) Name() string {
	return "gemini"
}

// Translate translates text between two languages
func (b *GeminiBackend) Translate(ctx context.Context, text, source, target string) (translation.Output, error) {
	if b.apiKey == "" {
		return translation.Output{}, fmt.Errorf("Gemini API key not found")
	}

	client, err := b.getClient(ctx)
	if err != nil {
		return translation.Output{}, err
	}

	temperature := float32(0.3)
	resp, err := client.Models.GenerateContent(ctx, b.model,
		genai.Text(translation.BuildPrompt(text, source, target)),
		&genai.GenerateContentConfig{Temperature: &temperature},
	)
	if err != nil {
		return translation.Output{}, fmt.Errorf("Gemini API error: %w", err)
	}

	translated := strings.TrimSpace(resp.Text())
	if translated == "" {
		return translation.Output{}, fmt.Errorf("no translation returned")
	}

	out := translation.Output{Text: translated}
	if len(resp.Candidates) > 0 && resp.Candidates[0].AvgLogprobs != 0 {
		out.Score = translation.Float(math.Min(1, math.Exp(resp.Candidates[0].AvgLogprobs)))
	}
	return out, nil
}

func (b *GeminiBackend) getClient(ctx context.Context) (*genai.Client, error) {
	b.once.Do(func() {
		b.client, b.clientErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  b.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if b.clientErr != nil {
			b.clientErr = fmt.Errorf("failed to create Gemini client: %w", b.clientErr)
		}
	})
	return b.client, b.clientErr
}
