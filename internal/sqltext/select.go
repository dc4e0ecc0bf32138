// Package sqltext holds the editor-side helpers of a SQL console: choosing
// what to run, completing identifiers and classifying tokens for highlighting.
package sqltext

import "strings"

// SelectStatement returns selection when it has non-blank text and the
// whole console text otherwise.
func SelectStatement(text, selection string) string {
	if strings.TrimSpace(selection) != "" {
		return selection
	}
	return text
}
