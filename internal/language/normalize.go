// Package language normalizes language codes and maps them to speech locales.
package language

import "strings"

// Auto is the source language placeholder that asks for detection.
const Auto = "auto"

const maxSubtagLen = 8

// NormalizeTag lowercases a BCP 47 style tag and joins its subtags with "-".
// The primary subtag must be letters only; later subtags may also hold
// digits, as in "es-419". Malformed input yields "".
func NormalizeTag(raw string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(raw)), func(r rune) bool {
		return r == '-' || r == '_'
	})
	if len(fields) == 0 {
		return ""
	}

	for i, field := range fields {
		if len(field) > maxSubtagLen {
			return ""
		}
		allowDigits := i > 0
		for _, r := range field {
			switch {
			case r >= 'a' && r <= 'z':
			case allowDigits && r >= '0' && r <= '9':
			default:
				return ""
			}
		}
	}
	if len(fields[0]) < 2 {
		return ""
	}
	return strings.Join(fields, "-")
}

// NormalizeCode returns the primary subtag of raw, "en" for "en-US".
func NormalizeCode(raw string) string {
	primary, _, _ := strings.Cut(NormalizeTag(raw), "-")
	return primary
}
