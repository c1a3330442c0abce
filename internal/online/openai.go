package online

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/parlo/internal/translation"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIBackend translates with an OpenAI chat model.
type OpenAIBackend struct {
	apiKey string
	model  string
	client *openai.Client
}

// NewOpenAIBackend creates a new OpenAI backend
func NewOpenAIBackend(apiKey, model string) *OpenAIBackend {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIBackend{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClient(apiKey),
	}
}

// NewOpenAIBackendWithBaseURL creates a backend for any OpenAI-compatible API.
func NewOpenAIBackendWithBaseURL(apiKey, baseURL, model string) *OpenAIBackend {
	if model == "" {
		model = DefaultOpenAIModel
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIBackend{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClientWithConfig(config),
	}
}

// Name returns the backend name
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Translate translates text between two languages
func (b *OpenAIBackend) Translate(ctx context.Context, text, source, target string) (translation.Output, error) {
	if b.apiKey == "" {
		return translation.Output{}, fmt.Errorf("OpenAI API key not found")
	}

	req := openai.ChatCompletionRequest{
		Model: b.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: translation.BuildPrompt(text, source, target),
			},
		},
		MaxTokens:   200,
		Temperature: 0.3,
		LogProbs:    true,
	}

	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return translation.Output{}, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return translation.Output{}, fmt.Errorf("no translation returned")
	}

	choice := resp.Choices[0]
	out := translation.Output{Text: strings.TrimSpace(choice.Message.Content)}
	if choice.LogProbs != nil {
		logprobs := make([]float64, 0, len(choice.LogProbs.Content))
		for _, lp := range choice.LogProbs.Content {
			logprobs = append(logprobs, lp.LogProb)
		}
		out.Score = translation.ConfidenceFromLogProbs(logprobs)
	}
	return out, nil
}
