package stringutils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeUnicodeString strips null bytes and control characters from text
// coming back from transcription or completion endpoints, keeping tab,
// newline and carriage return.
func SanitizeUnicodeString(s string) string {
	if utf8.ValidString(s) && !hasControlChars(s) {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))

	for _, r := range s {
		if r == 0 || (r < 32 && r != '\t' && r != '\n' && r != '\r') {
			continue
		}
		if r == 127 || (r >= 128 && r <= 159) {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

func hasControlChars(s string) bool {
	for _, r := range s {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
		if r == 127 || (r >= 128 && r <= 159) {
			return true
		}
	}
	return false
}
