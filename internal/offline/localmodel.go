package offline

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/parlo/internal/language"
	"codeberg.org/snonux/parlo/internal/translation"
)

// DefaultLocalEndpoint points to a local OpenAI-compatible inference server.
const DefaultLocalEndpoint = "http://127.0.0.1:8845/v1"

// LocalModelLoader loads models served by a local OpenAI-compatible server
// (llama.cpp, vLLM, ...). Each placement has its own endpoint, typically one
// server started on the GPU and one on the CPU.
type LocalModelLoader struct {
	Endpoints  map[translation.Placement]string
	APIKey     string
	Languages  []string
	HTTPClient *http.Client
}

// Load verifies that opts.Model is served at the placement's endpoint.
func (l *LocalModelLoader) Load(ctx context.Context, opts LoadOptions) (Engine, error) {
	if opts.Task != TaskTranslation {
		return nil, fmt.Errorf("unsupported task: %s", opts.Task)
	}

	endpoint := strings.TrimSpace(l.Endpoints[opts.Placement])
	if endpoint == "" {
		return nil, fmt.Errorf("no endpoint configured for %s placement", opts.Placement)
	}

	config := openai.DefaultConfig(l.APIKey)
	config.BaseURL = normalizeEndpoint(endpoint)
	if l.HTTPClient != nil {
		config.HTTPClient = l.HTTPClient
	}
	client := openai.NewClientWithConfig(config)

	models, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("local model server at %s: %w", config.BaseURL, err)
	}

	for _, model := range models.Models {
		if model.ID == opts.Model {
			return &localModelEngine{client: client, model: opts.Model}, nil
		}
	}
	return nil, fmt.Errorf("model %q is not served at %s", opts.Model, config.BaseURL)
}

// SupportsPair reports whether both languages are configured. An empty
// language list accepts every pair.
func (l *LocalModelLoader) SupportsPair(source, target string) bool {
	if len(l.Languages) == 0 {
		return true
	}
	return containsCode(l.Languages, source) && containsCode(l.Languages, target)
}

func containsCode(codes []string, code string) bool {
	normalized := language.NormalizeCode(code)
	for _, c := range codes {
		if language.NormalizeCode(c) == normalized {
			return true
		}
	}
	return false
}

type localModelEngine struct {
	client *openai.Client
	model  string
}

func (e *localModelEngine) Translate(ctx context.Context, text, source, target string) (translation.Output, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: translation.BuildPrompt(text, source, target),
			},
		},
		Temperature: 0.2,
		LogProbs:    true,
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return translation.Output{}, fmt.Errorf("local model error: %w", err)
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

func normalizeEndpoint(raw string) string {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return DefaultLocalEndpoint
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil || strings.TrimSpace(parsed.Host) == "" {
		return DefaultLocalEndpoint
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if parsed.Path == "" {
		parsed.Path = "/v1"
	}
	return parsed.String()
}
