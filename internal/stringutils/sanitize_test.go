package stringutils_test

import (
	"testing"

	"github.com/soulweave/rose/internal/stringutils"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeUnicodeString(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "string with null byte",
			input:    "hello\x00there",
			expected: "hellothere",
		},
		{
			name:     "string with control characters",
			input:    "test\x00\x01\x1f\x7fstring",
			expected: "teststring",
		},
		{
			name:     "string with valid whitespace",
			input:    "normal\tstring\nwith\rwhitespace",
			expected: "normal\tstring\nwith\rwhitespace",
		},
		{
			name:     "clean string",
			input:    "completely normal string",
			expected: "completely normal string",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "string with C1 control characters",
			input:    "teststring",
			expected: "teststring",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stringutils.SanitizeUnicodeString(tc.input))
		})
	}
}
