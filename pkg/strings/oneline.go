// Package strings holds text helpers for agent-facing output.
package strings

import (
	"fmt"
	"strings"
)

// DefaultMessageMaxLen bounds error messages shown to agents in tool text.
const DefaultMessageMaxLen = 300

// minOneLineLen leaves room for one character plus the ellipsis.
const minOneLineLen = 4

// OneLine collapses all whitespace runs in s (newlines included) into single
// spaces and cuts the result to at most maxLen runes, ending in "..." when cut.
func OneLine(s string, maxLen int) string {
	if maxLen < minOneLineLen {
		maxLen = minOneLineLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// OneLineDefault is OneLine with DefaultMessageMaxLen, shaped for template func maps.
func OneLineDefault(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return OneLine(x, DefaultMessageMaxLen)
	case error:
		return OneLine(x.Error(), DefaultMessageMaxLen)
	default:
		return OneLine(fmt.Sprint(x), DefaultMessageMaxLen)
	}
}
