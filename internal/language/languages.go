package language

import (
	"sort"
	"strings"
)

// DefaultSpeechLocale is used for languages missing from the locale table.
const DefaultSpeechLocale = "en-US"

var speechLocales = map[string]string{
	"en": "en-US",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-PT",
	"ru": "ru-RU",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"zh": "zh-CN",
}

var englishNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
}

// SpeechLocale maps a language code to the locale used for spoken playback.
func SpeechLocale(code string) string {
	if locale, ok := speechLocales[NormalizeCode(code)]; ok {
		return locale
	}
	return DefaultSpeechLocale
}

// Name returns the English name of a language, or the upper-cased code.
func Name(code string) string {
	normalized := NormalizeCode(code)
	if name, ok := englishNames[normalized]; ok {
		return name
	}
	if normalized == "" {
		return code
	}
	return strings.ToUpper(normalized)
}

// Codes returns the languages offered for selection, sorted.
func Codes() []string {
	codes := make([]string, 0, len(englishNames))
	for code := range englishNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
