package online

import (
	"fmt"
	"strings"
)

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Provider    string // "openai" or "gemini"
	OpenAIKey   string
	OpenAIModel string
	OpenAIURL   string // optional OpenAI-compatible base URL
	GeminiKey   string
	GeminiModel string
}

// NewBackend creates the backend named by config.Provider.
func NewBackend(config BackendConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(config.Provider)) {
	case "", "openai":
		if config.OpenAIURL != "" {
			return NewOpenAIBackendWithBaseURL(config.OpenAIKey, config.OpenAIURL, config.OpenAIModel), nil
		}
		return NewOpenAIBackend(config.OpenAIKey, config.OpenAIModel), nil
	case "gemini":
		return NewGeminiBackend(config.GeminiKey, config.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unknown online provider: %s", config.Provider)
	}
}
