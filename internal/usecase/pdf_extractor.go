package usecase

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/textutil"
)

// PDFStrategy selects how title candidates are recognised in document text
type PDFStrategy string

const (
	// PDFStrategyLength accepts every line whose length falls inside the title bounds
	PDFStrategyLength PDFStrategy = "length"
	// PDFStrategySKU accepts lines carrying a SKU token and uses the rest of the line as title
	PDFStrategySKU PDFStrategy = "sku"
)

// DefaultSKUPatterns are prefix-hyphen-alphanumeric shapes, most specific first
var DefaultSKUPatterns = []string{
	`\b[A-Z]{2,5}-\d{2,6}[A-Z0-9]*\b`,
	`\b[A-Z]{1,5}-[A-Z0-9]{2,12}\b`,
}

// Matches a currency-marked amount inside a catalog line, e.g. "$ 1.299,00" or "USD 45"
var linePricePattern = regexp.MustCompile(`(?:[$€£]|\b(?:USD|MXN|COP|CLP|ARS|PEN|EUR)\b)\s?\d[\d.,]*`)

const (
	fallbackTitleRunes       = 100
	fallbackDescriptionRunes = 500
	maxPDFDescriptionRunes   = 500
)

// PDFExtractorConfig holds the acceptance thresholds of the PDF extractor
type PDFExtractorConfig struct {
	Strategy          PDFStrategy
	MinLineLength     int
	MinTitleLength    int
	MaxTitleLength    int
	SKUMinTitleLength int
	MaxHeadingLength  int
	SKUPatterns       []string
}

// PDFExtractor turns document text into raw product candidates
type PDFExtractor struct {
	config     PDFExtractorConfig
	normalizer *TextNormalizer
	skuRegexes []*regexp.Regexp
}

// NewPDFExtractor creates a PDF extractor, filling zero thresholds with defaults
func NewPDFExtractor(config PDFExtractorConfig) (*PDFExtractor, error) {
	if config.Strategy == "" {
		config.Strategy = PDFStrategyLength
	}
	if config.MinLineLength == 0 {
		config.MinLineLength = 10
	}
	if config.MinTitleLength == 0 {
		config.MinTitleLength = 15
	}
	if config.MaxTitleLength == 0 {
		config.MaxTitleLength = 200
	}
	if config.SKUMinTitleLength == 0 {
		config.SKUMinTitleLength = 3
	}
	if config.MaxHeadingLength == 0 {
		config.MaxHeadingLength = 60
	}
	if len(config.SKUPatterns) == 0 {
		config.SKUPatterns = DefaultSKUPatterns
	}

	regexes := make([]*regexp.Regexp, 0, len(config.SKUPatterns))
	for _, pattern := range config.SKUPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid SKU pattern %q: %w", pattern, err)
		}
		regexes = append(regexes, re)
	}

	return &PDFExtractor{
		config:     config,
		normalizer: NewTextNormalizer(config.MinLineLength, config.MaxHeadingLength),
		skuRegexes: regexes,
	}, nil
}

// Extract returns the product candidates found in text. It never returns an empty slice:
// when nothing qualifies, a single candidate is built from the start of the document.
func (e *PDFExtractor) Extract(text string) []domain.RawProductCandidate {
	lines := e.normalizer.Lines(text)

	var candidates []domain.RawProductCandidate
	if e.config.Strategy == PDFStrategySKU {
		candidates = e.extractBySKU(lines)
	} else {
		candidates = e.extractByLength(lines)
	}

	if len(candidates) == 0 {
		return []domain.RawProductCandidate{fallbackCandidate(text)}
	}
	return candidates
}

// extractByLength treats every reasonably sized line with a letter as a product title.
// Upper-case lines count as titles too; only those too short to be titles set the category.
func (e *PDFExtractor) extractByLength(lines []string) []domain.RawProductCandidate {
	var candidates []domain.RawProductCandidate
	category := ""

	for _, line := range lines {
		if !e.acceptsTitle(line, e.config.MinTitleLength) {
			if e.normalizer.IsHeading(line) {
				category = line
			}
			continue
		}
		candidates = append(candidates, domain.RawProductCandidate{
			Title:      line,
			Category:   category,
			SourceHint: domain.SourcePDF,
		})
	}

	return candidates
}

// extractBySKU builds one candidate per unseen SKU token. Lines following a candidate
// that are neither headings nor SKU lines become its description.
func (e *PDFExtractor) extractBySKU(lines []string) []domain.RawProductCandidate {
	var candidates []domain.RawProductCandidate
	seen := make(map[string]bool)
	category := ""
	current := -1

	for _, line := range lines {
		sku, rest, found, duplicate := e.matchSKU(line, seen)
		if duplicate {
			current = -1
			continue
		}
		if found {
			title, price := splitLinePrice(rest)
			title = textutil.TrimSeparators(textutil.CollapseWhitespace(title))
			if !e.acceptsTitle(title, e.config.SKUMinTitleLength) {
				current = -1
				continue
			}
			seen[sku] = true
			candidates = append(candidates, domain.RawProductCandidate{
				Title:      title,
				Price:      price,
				SKU:        sku,
				Category:   category,
				SourceHint: domain.SourcePDF,
			})
			current = len(candidates) - 1
			continue
		}

		switch e.normalizer.Classify(line) {
		case LineHeading:
			category = line
			current = -1
		case LineText:
			if current >= 0 {
				appendDescription(&candidates[current], line)
			}
		}
	}

	return candidates
}

// matchSKU finds the first unseen SKU token on a line, trying patterns in order.
// duplicate is true when the line only carries tokens that were already emitted.
func (e *PDFExtractor) matchSKU(line string, seen map[string]bool) (sku, rest string, found, duplicate bool) {
	for _, re := range e.skuRegexes {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			token := line[loc[0]:loc[1]]
			if seen[token] {
				duplicate = true
				continue
			}
			return token, line[:loc[0]] + " " + line[loc[1]:], true, false
		}
	}
	return "", "", false, duplicate
}

func (e *PDFExtractor) acceptsTitle(title string, minLength int) bool {
	length := utf8.RuneCountInString(title)
	return length >= minLength && length <= e.config.MaxTitleLength && textutil.HasLetter(title)
}

// splitLinePrice cuts a currency-marked amount out of a line
func splitLinePrice(line string) (string, string) {
	loc := linePricePattern.FindStringIndex(line)
	if loc == nil {
		return line, ""
	}
	price := ExtractPrice(line[loc[0]:loc[1]])
	return line[:loc[0]] + " " + line[loc[1]:], price
}

func appendDescription(candidate *domain.RawProductCandidate, line string) {
	if utf8.RuneCountInString(candidate.Description) >= maxPDFDescriptionRunes {
		return
	}
	if candidate.Description == "" {
		candidate.Description = line
	} else {
		candidate.Description = candidate.Description + " " + line
	}
	candidate.Description = textutil.Truncate(candidate.Description, maxPDFDescriptionRunes)
}

// fallbackCandidate guarantees every document yields at least one row
func fallbackCandidate(text string) domain.RawProductCandidate {
	return domain.RawProductCandidate{
		Title:       strings.TrimSpace(textutil.Substring(text, 0, fallbackTitleRunes)),
		Description: strings.TrimSpace(textutil.Substring(text, fallbackTitleRunes, fallbackDescriptionRunes)),
		SourceHint:  domain.SourcePDF,
	}
}
