package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/parlo/internal/language"
)

// instructedModel is the only OpenAI speech model that accepts voice
// instructions.
const instructedModel = "gpt-4o-mini-tts"

var responseFormats = map[string]openai.SpeechResponseFormat{
	".wav":  openai.SpeechResponseFormatWav,
	".opus": openai.SpeechResponseFormatOpus,
	".aac":  openai.SpeechResponseFormatAac,
	".flac": openai.SpeechResponseFormatFlac,
	".mp3":  openai.SpeechResponseFormatMp3,
}

// OpenAIProvider renders speech with the OpenAI speech endpoint
type OpenAIProvider struct {
	client *openai.Client
	model  string
	voice  string
	speed  float64
	apiKey string
	// cache is nil when caching is disabled
	cache *speechCache
}

// NewOpenAIProvider creates an OpenAI speech provider
func NewOpenAIProvider(config *Config) (Provider, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.OpenAIKey)
	if config.OpenAIURL != "" {
		clientConfig.BaseURL = config.OpenAIURL
	}

	p := &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.OpenAIModel,
		voice:  config.OpenAIVoice,
		speed:  config.OpenAISpeed,
		apiKey: config.OpenAIKey,
	}

	if config.EnableCache && config.CacheDir != "" {
		cache, err := newSpeechCache(config.CacheDir)
		if err != nil {
			return nil, err
		}
		p.cache = cache
	}
	return p, nil
}

// GenerateAudio renders text in locale into outputFile. The file extension
// selects the audio format.
func (p *OpenAIProvider) GenerateAudio(ctx context.Context, text, locale, outputFile string) error {
	if err := ValidateSpeechText(text, locale); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(outputFile))
	var key string
	if p.cache != nil {
		key = p.cache.key(text, locale, p.model, p.voice, fmt.Sprintf("%.2f", p.speed))
		if p.cache.fetch(key, ext, outputFile) {
			return nil
		}
	}

	response, err := p.client.CreateSpeech(ctx, p.speechRequest(text, locale, ext))
	if err != nil {
		if p.model == instructedModel && strings.Contains(err.Error(), "does not have access to model") {
			return fmt.Errorf("OpenAI speech error: %w (set speech.openai_model to tts-1 without access to %s)", err, p.model)
		}
		return fmt.Errorf("OpenAI speech error: %w", err)
	}
	defer response.Close()

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	counter := &countingReader{r: response}
	if err := writeAtomically(outputFile, counter); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if counter.n == 0 {
		os.Remove(outputFile)
		return fmt.Errorf("no audio data received from OpenAI")
	}

	if p.cache != nil {
		// A failed cache write does not fail the rendering
		_ = p.cache.store(key, ext, outputFile)
	}
	return nil
}

func (p *OpenAIProvider) speechRequest(text, locale, ext string) openai.CreateSpeechRequest {
	format, ok := responseFormats[ext]
	if !ok {
		format = openai.SpeechResponseFormatMp3
	}

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.model),
		Input:          cleanSpeechText(text),
		Voice:          openai.SpeechVoice(p.voice),
		Speed:          p.speed,
		ResponseFormat: format,
	}
	if p.model == instructedModel {
		req.Instructions = speechInstruction(locale)
	}
	return req
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable only checks the key; a real request would cost credits
func (p *OpenAIProvider) IsAvailable() error {
	if p.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}
	return nil
}

// speechInstruction asks for native pronunciation of the locale's language
func speechInstruction(locale string) string {
	name := language.Name(language.NormalizeCode(locale))
	return fmt.Sprintf("You are speaking %s (%s). Pronounce the text with native %s phonetics and speak clearly.", name, locale, name)
}

// cleanSpeechText drops characters that speech engines tend to read out loud
func cleanSpeechText(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune("\"()[]{}*_", r) {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
