package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ecometri/catalog-converter/internal/textutil"
)

// LineKind classifies a line of document text
type LineKind int

const (
	LineNoise LineKind = iota
	LineHeading
	LineText
)

// TextNormalizer trims noise lines and separates category headings from candidate titles
type TextNormalizer struct {
	minLineLength    int
	maxHeadingLength int
}

// NewTextNormalizer creates a normalizer. Lines whose trimmed length is not greater than
// minLineLength are noise; headings must be shorter than maxHeadingLength.
func NewTextNormalizer(minLineLength, maxHeadingLength int) *TextNormalizer {
	if maxHeadingLength <= 0 {
		maxHeadingLength = 60
	}
	return &TextNormalizer{
		minLineLength:    minLineLength,
		maxHeadingLength: maxHeadingLength,
	}
}

// Lines splits text into trimmed, non-empty lines
func (n *TextNormalizer) Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = textutil.CollapseWhitespace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Classify decides whether a trimmed line is noise, a category heading or regular text
func (n *TextNormalizer) Classify(line string) LineKind {
	if n.IsHeading(line) {
		return LineHeading
	}
	if utf8.RuneCountInString(line) <= n.minLineLength {
		return LineNoise
	}
	return LineText
}

// IsHeading reports whether a line is short and entirely upper-case
func (n *TextNormalizer) IsHeading(line string) bool {
	length := utf8.RuneCountInString(line)
	if length < 3 || length >= n.maxHeadingLength {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// dedupeKey is the case-insensitive identity of a product title
func dedupeKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
