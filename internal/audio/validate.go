package audio

import (
	"fmt"
	"strings"

	"codeberg.org/snonux/parlo/internal/language"
)

// ValidateSpeechText checks that text can be spoken in locale
func ValidateSpeechText(text, locale string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text cannot be empty")
	}

	if language.NormalizeCode(locale) == "" {
		return fmt.Errorf("invalid speech locale: %q", locale)
	}

	return nil
}
