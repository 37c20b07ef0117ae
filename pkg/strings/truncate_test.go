package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short unchanged", "fallback", 20, "fallback"},
		{"exact length", "abcdef", 6, "abcdef"},
		{"truncated", "capability document is malformed", 15, "capability d..."},
		{"multiline body collapsed", "unexpected status 500:\n  <html>\n\tbad gateway", 80, "unexpected status 500: <html> bad gateway"},
		{"unicode safe", "ärztliche Übersicht", 8, "ärztl..."},
		{"maxLen clamped", "abcdefgh", 1, "a..."},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.input, tt.maxLen))
		})
	}
}
