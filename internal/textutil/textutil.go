// Package textutil holds rune-safe string cleanup shared by the extractors and the store adapters.
package textutil

import (
	"html"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// Matches any markup tag
	markupTagPattern = regexp.MustCompile(`<[^>]*>`)

	// Multiple whitespace cleanup
	whitespacePattern = regexp.MustCompile(`\s+`)

	// Separators left over at the edges of a title after a token is cut out of it
	edgeSeparatorPattern = regexp.MustCompile(`^[\s\-–—:|/·•,.;]+|[\s\-–—:|/·•,;]+$`)
)

// StripMarkup removes tags and entities from an HTML fragment and collapses whitespace
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	s = markupTagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return CollapseWhitespace(s)
}

// CollapseWhitespace trims s and squeezes inner whitespace runs to single spaces
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// TrimSeparators removes dangling punctuation around a title
func TrimSeparators(s string) string {
	return strings.TrimSpace(edgeSeparatorPattern.ReplaceAllString(s, ""))
}

// HasLetter reports whether s contains at least one letter
func HasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// Substring returns the runes of s in [start, end), clamped to its length
func Substring(s string, start, end int) string {
	runes := []rune(s)
	if start > len(runes) {
		return ""
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start < 0 {
		start = 0
	}
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}
