package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"codeberg.org/snonux/parlo/internal"
)

// Speaker renders text with a Provider and plays it with a Player.
type Speaker struct {
	provider Provider
	player   Player
	format   string
	logger   zerolog.Logger
}

// NewSpeaker creates a speaker. format is the file extension handed to the
// provider ("mp3" when empty).
func NewSpeaker(provider Provider, player Player, format string, logger zerolog.Logger) *Speaker {
	if format == "" {
		format = "mp3"
	}
	return &Speaker{
		provider: provider,
		player:   player,
		format:   format,
		logger:   logger.With().Str("component", "speaker").Logger(),
	}
}

// Speak says text in locale and blocks until playback has finished.
func (s *Speaker) Speak(ctx context.Context, text, locale string) error {
	dir, err := os.MkdirTemp("", "parlo-speech-")
	if err != nil {
		return fmt.Errorf("failed to create speech directory: %w", err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, internal.SanitizeFilename(text)+"."+s.format)
	if err := s.provider.GenerateAudio(ctx, text, locale, file); err != nil {
		return fmt.Errorf("speech generation: %w", err)
	}

	s.logger.Debug().Str("provider", s.provider.Name()).Str("locale", locale).Msg("playing translation")

	if err := s.player.Play(ctx, file); err != nil {
		return fmt.Errorf("speech playback: %w", err)
	}
	return nil
}
