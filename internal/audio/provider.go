// Package audio speaks translations aloud: a text-to-speech provider renders
// the text to a file and a local player plays it.
package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
)

// Provider renders speech into audio files
type Provider interface {
	// GenerateAudio renders text spoken in locale (e.g. "es-ES") into outputFile
	GenerateAudio(ctx context.Context, text, locale, outputFile string) error
	Name() string
	// IsAvailable reports why the provider cannot be used, if it cannot
	IsAvailable() error
}

// Config selects and configures a provider
type Config struct {
	Provider string // "openai", "espeak" or "espeak-ng"

	OpenAIKey   string
	OpenAIModel string  // "tts-1", "tts-1-hd" or "gpt-4o-mini-tts"
	OpenAIVoice string  // "alloy", "ash", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"
	OpenAISpeed float64 // 0.25 to 4.0
	OpenAIURL   string  // optional OpenAI-compatible base URL

	CacheDir    string
	EnableCache bool
}

// DefaultProviderConfig returns the default OpenAI speech settings
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:    "openai",
		OpenAIModel: "gpt-4o-mini-tts",
		OpenAIVoice: "alloy",
		OpenAISpeed: 1.0,
	}
}

// NewProvider creates the provider named by config.Provider
func NewProvider(config *Config) (Provider, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}

	switch config.Provider {
	case "openai":
		return NewOpenAIProvider(config)
	case "espeak", "espeak-ng":
		return NewESpeakProvider(nil)
	default:
		return nil, fmt.Errorf("unknown audio provider: %s", config.Provider)
	}
}

// Chain tries its providers in order until one succeeds
type Chain struct {
	providers []Provider
	logger    zerolog.Logger
}

// NewChain creates a chain; nil providers are skipped
func NewChain(logger zerolog.Logger, providers ...Provider) *Chain {
	c := &Chain{logger: logger.With().Str("component", "audio").Logger()}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// GenerateAudio renders with the first provider that succeeds. When all
// fail, every failure is returned.
func (c *Chain) GenerateAudio(ctx context.Context, text, locale, outputFile string) error {
	if len(c.providers) == 0 {
		return fmt.Errorf("no speech provider configured")
	}

	var errs error
	for i, p := range c.providers {
		err := p.GenerateAudio(ctx, text, locale, outputFile)
		if err == nil {
			return nil
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.Name(), err))

		if i+1 < len(c.providers) {
			c.logger.Warn().
				Err(err).
				Str("provider", p.Name()).
				Str("next", c.providers[i+1].Name()).
				Msg("speech provider failed, falling back")
		}
	}
	return errs
}

// Name joins the provider names in order
func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return strings.Join(names, "+")
}

// IsAvailable succeeds when at least one provider is available
func (c *Chain) IsAvailable() error {
	var errs error
	for _, p := range c.providers {
		err := p.IsAvailable()
		if err == nil {
			return nil
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}
	if errs == nil {
		return fmt.Errorf("no speech provider configured")
	}
	return errs
}
