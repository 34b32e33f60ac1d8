package llm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPreviewLength is the maximum length for preview strings in logs and
	// trace records.
	MaxPreviewLength = 200
	// RedactedValue replaces sensitive data in log output.
	RedactedValue = "[REDACTED]"
)

// SanitizeAPIKey sanitizes an API key for logging.
func SanitizeAPIKey(apiKey string) string {
	if apiKey == "" {
		return ""
	}
	if len(apiKey) <= 8 {
		return RedactedValue
	}
	return apiKey[:4] + RedactedValue + apiKey[len(apiKey)-4:]
}

// SanitizePreview creates a safe preview of prompt or response content for
// logging: valid UTF-8, no control characters, bounded length.
func SanitizePreview(s string) string {
	if s == "" {
		return ""
	}
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

	return TruncateString(builder.String(), MaxPreviewLength)
}

// TruncateString safely truncates a string to max length.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
