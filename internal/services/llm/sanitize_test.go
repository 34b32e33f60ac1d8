package llm

import (
	"strings"
	"testing"
)

func TestSanitizeAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		apiKey string
		want   string
	}{
		{"empty", "", ""},
		{"short key fully redacted", "sk-12345", RedactedValue},
		{"long key keeps edges", "sk-abcdef1234567890", "sk-a" + RedactedValue + "7890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeAPIKey(tt.apiKey); got != tt.want {
				t.Errorf("SanitizeAPIKey(%q) = %q, want %q", tt.apiKey, got, tt.want)
			}
		})
	}
}

func TestSanitizePreview(t *testing.T) {
	t.Parallel()

	t.Run("strips control characters", func(t *testing.T) {
		t.Parallel()
		got := SanitizePreview("hello\x00world\x1b[0m")
		if strings.ContainsRune(got, 0) || strings.ContainsRune(got, 0x1b) {
			t.Errorf("SanitizePreview left control characters: %q", got)
		}
	})

	t.Run("truncates long content", func(t *testing.T) {
		t.Parallel()
		got := SanitizePreview(strings.Repeat("a", MaxPreviewLength*2))
		if len(got) != MaxPreviewLength+len("...") {
			t.Errorf("len = %d, want %d", len(got), MaxPreviewLength+len("..."))
		}
		if !strings.HasSuffix(got, "...") {
			t.Errorf("truncated preview missing ellipsis: %q", got)
		}
	})

	t.Run("repairs invalid utf8", func(t *testing.T) {
		t.Parallel()
		got := SanitizePreview("valid\xff\xfetail")
		if !strings.HasPrefix(got, "valid") || !strings.HasSuffix(got, "tail") {
			t.Errorf("SanitizePreview(%q) = %q", "valid\xff\xfetail", got)
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("TruncateString under limit = %q, want unchanged", got)
	}
	if got := TruncateString("0123456789", 4); got != "0123..." {
		t.Errorf("TruncateString over limit = %q, want %q", got, "0123...")
	}
}
