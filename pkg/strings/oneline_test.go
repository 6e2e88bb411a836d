package strings

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOneLine(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short unchanged", "upstream down", 20, "upstream down"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"cut with ellipsis", "Beltche API error: 503", 15, "Beltche API ..."},
		{"newlines collapsed", "line one\n\n\tline two", 40, "line one line two"},
		{"tiny max clamped", "abcdef", 1, "a..."},
		{"runes not split", "zł zł zł zł", 6, "zł ..."},
		{"empty", "", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OneLine(tt.input, tt.maxLen))
		})
	}
}

func TestOneLineDefault(t *testing.T) {
	assert.Equal(t, "", OneLineDefault(nil))
	assert.Equal(t, "a b", OneLineDefault("a\nb"))
	assert.Equal(t, "boom", OneLineDefault(errors.New("boom")))
	assert.Equal(t, "42", OneLineDefault(42))

	long := OneLineDefault(strings.Repeat("x", 1000))
	assert.Len(t, long, DefaultMessageMaxLen)
}
