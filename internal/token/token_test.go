package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tok, err := Generate()
	require.NoError(t, err)

	assert.Len(t, tok, Length)
	assert.True(t, IsValid(tok), "generated token %q should be valid", tok)
	assert.Equal(t, strings.ToLower(tok), tok)
}

func TestGenerate_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		require.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
}

func TestGenerate_Consecutive(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestIsValid(t *testing.T) {
	valid := strings.Repeat("a1", 32)

	tests := []struct {
		name      string
		candidate any
		want      bool
	}{
		{"valid", valid, true},
		{"all digits", strings.Repeat("0", 64), true},
		{"empty", "", false},
		{"non hex", strings.Repeat("g", 64), false},
		{"uppercase", strings.ToUpper(valid), false},
		{"length 63", valid[:63], false},
		{"length 65", valid + "a", false},
		{"trailing newline", valid + "\n", false},
		{"nil", nil, false},
		{"number", 12345, false},
		{"float", 1.5, false},
		{"map", map[string]any{"token": valid}, false},
		{"struct", struct{ S string }{valid}, false},
		{"pointer to string", &valid, false},
		{"byte slice", []byte(valid), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValid(tt.candidate))
		})
	}
}

func TestAccessURL(t *testing.T) {
	assert.Equal(t, "https://example.com/form/abc123", AccessURL("https://example.com", "abc123"))
	assert.Equal(t, "/form/abc", AccessURL("", "abc"))
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abc", Short("abc"))
	assert.Equal(t, "01234567...", Short("0123456789abcdef"))
}

func TestRoundTrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		tok, err := Generate()
		require.NoError(t, err)
		require.True(t, IsValid(tok))
	}
}
