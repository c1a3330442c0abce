package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/snonux/parlo/internal/language"
)

// ESpeakConfig tunes the espeak-ng voice
type ESpeakConfig struct {
	Speed     int // words per minute, 80 to 450
	Pitch     int // 0 to 99
	Amplitude int // 0 to 200
	WordGap   int // pause between words in 10ms units
}

// DefaultConfig returns the espeak-ng defaults
func DefaultConfig() *ESpeakConfig {
	return &ESpeakConfig{Speed: 150, Pitch: 50, Amplitude: 100}
}

// clamped returns a copy with every value inside the range espeak-ng accepts
func (c ESpeakConfig) clamped() ESpeakConfig {
	c.Speed = clamp(c.Speed, 80, 450)
	c.Pitch = clamp(c.Pitch, 0, 99)
	c.Amplitude = clamp(c.Amplitude, 0, 200)
	c.WordGap = max(c.WordGap, 0)
	return c
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// espeakVoices maps language codes to espeak-ng voices where they differ
var espeakVoices = map[string]string{
	"en": "en-us",
	"pt": "pt",
	"zh": "cmn",
}

// VoiceForLocale returns the espeak-ng voice for a speech locale
func VoiceForLocale(locale string) string {
	code := language.NormalizeCode(locale)
	if code == "" {
		code = language.NormalizeCode(language.DefaultSpeechLocale)
	}
	if voice, ok := espeakVoices[code]; ok {
		return voice
	}
	return code
}

// ESpeakProvider renders speech locally with espeak-ng. MP3 output is
// converted from WAV with ffmpeg.
type ESpeakProvider struct {
	config ESpeakConfig
}

// NewESpeakProvider creates an espeak-ng provider. A nil config uses the
// defaults.
func NewESpeakProvider(config *ESpeakConfig) (Provider, error) {
	if err := requireCommand("espeak-ng"); err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &ESpeakProvider{config: config.clamped()}, nil
}

// GenerateAudio renders text into outputFile
func (p *ESpeakProvider) GenerateAudio(ctx context.Context, text, locale, outputFile string) error {
	if err := ValidateSpeechText(text, locale); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	voice := VoiceForLocale(locale)
	if strings.ToLower(filepath.Ext(outputFile)) != ".mp3" {
		return p.renderWAV(ctx, text, voice, outputFile)
	}

	if err := requireCommand("ffmpeg"); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp("", "parlo-espeak-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	wav := filepath.Join(tmp, "speech.wav")
	if err := p.renderWAV(ctx, text, voice, wav); err != nil {
		return err
	}
	return run(ctx, "ffmpeg", "-loglevel", "error", "-i", wav, "-acodec", "mp3", "-y", outputFile)
}

func (p *ESpeakProvider) renderWAV(ctx context.Context, text, voice, outputFile string) error {
	return run(ctx, "espeak-ng", p.args(text, voice, outputFile)...)
}

func (p *ESpeakProvider) args(text, voice, outputFile string) []string {
	args := []string{
		"-v", voice,
		"-s", strconv.Itoa(p.config.Speed),
		"-p", strconv.Itoa(p.config.Pitch),
		"-a", strconv.Itoa(p.config.Amplitude),
	}
	if p.config.WordGap > 0 {
		args = append(args, "-g", strconv.Itoa(p.config.WordGap))
	}
	return append(args, "-w", outputFile, cleanSpeechText(text))
}

// Name returns the provider name
func (p *ESpeakProvider) Name() string {
	return "espeak-ng"
}

// IsAvailable checks that espeak-ng is installed
func (p *ESpeakProvider) IsAvailable() error {
	return requireCommand("espeak-ng")
}

func requireCommand(name string) error {
	if _, err := lookPath(name); err != nil {
		return fmt.Errorf("%s is not installed or not in PATH: %w", name, err)
	}
	return nil
}

func run(ctx context.Context, name string, args ...string) error {
	output, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
