// Package textx provides small text utilities used across the project.
package textx

import (
	"strings"
)

const bom = "\ufeff"

// NormalizeScript prepares imported SQL for a console: the byte order mark
// is dropped, line endings become \n and control characters other than tab
// and newline are removed.
func NormalizeScript(s string) string {
	s = strings.TrimPrefix(s, bom)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || (r >= 32 && r != 127) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FirstLine returns the first non-blank line of s, trimmed and cut to max
// runes. It is used to label consoles and log statements.
func FirstLine(s string, max int) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r := []rune(line)
		if max > 0 && len(r) > max {
			return string(r[:max]) + "…"
		}
		return line
	}
	return ""
}
