package textutil

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var plainPolicy = bluemonday.StrictPolicy()

// PlainText strips markup and control characters from user supplied text and truncates it to
// maxRunes runes. Newlines and tabs are kept. A non-positive maxRunes disables truncation.
func PlainText(value string, maxRunes int) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	cleaned := html.UnescapeString(plainPolicy.Sanitize(value))
	cleaned = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, cleaned)
	cleaned = strings.TrimSpace(cleaned)
	if maxRunes > 0 && utf8.RuneCountInString(cleaned) > maxRunes {
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:maxRunes]))
	}
	return cleaned
}

// SingleLine behaves like PlainText and additionally collapses whitespace runs into one space.
func SingleLine(value string, maxRunes int) string {
	return strings.Join(strings.Fields(PlainText(value, maxRunes)), " ")
}
