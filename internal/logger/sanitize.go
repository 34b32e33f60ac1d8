package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs.
	MaxPathLength = 500
	// MaxErrorMessageLength is the maximum length for error messages in logs.
	MaxErrorMessageLength = 1000
	// MaxGeneralStringLength is the maximum length for general strings in logs.
	MaxGeneralStringLength = 2000
	// MaxDebugContentLength is the maximum length for debug content such as
	// rendered prompts and model responses.
	MaxDebugContentLength = 10000
)

// SanitizePath sanitizes a URL path for safe logging: valid UTF-8, no control
// characters, bounded length.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeString sanitizes a general string for safe logging.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}
	s = filterRunes(s)
	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// SanitizeError sanitizes an error message for safe logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}

// SanitizeDebugContent sanitizes prompt and response content for debug logs.
// Even in debug mode output is filtered to prevent log injection and bounded
// in size.
func SanitizeDebugContent(content string) string {
	return SanitizeString(content, MaxDebugContentLength)
}

// filterRunes validates UTF-8 and removes control characters, keeping
// printable runes, space, tab, newline and CR.
func filterRunes(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	var builder strings.Builder
	builder.Grow(len(s))
	for _, r := range s {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}
