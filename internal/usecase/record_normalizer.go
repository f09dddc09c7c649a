package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/textutil"
)

// Plain non-negative decimal such as "12" or "1234.56"
var decimalPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Canonical field caps and defaults
const (
	MaxNameLength        = 80
	MaxDescriptionLength = 500
	MaxSEODescription    = 160

	DefaultPrice    = "0"
	DefaultStock    = "0"
	DefaultCategory = "General"
	DefaultStatus   = "activo"
	importedTag     = "importado"
)

// RecordNormalizer merges extractor output, hosted images and enhancements into
// canonical products.
type RecordNormalizer struct {
	now func() time.Time
}

// NewRecordNormalizer creates a normalizer. A nil clock uses time.Now.
func NewRecordNormalizer(now func() time.Time) *RecordNormalizer {
	if now == nil {
		now = time.Now
	}
	return &RecordNormalizer{now: now}
}

// Merge builds the canonical record for the index-th candidate of a run.
// enhancement may be nil; it only takes precedence when it succeeded.
func (n *RecordNormalizer) Merge(raw domain.RawProductCandidate, enhancement *domain.Enhancement, images []string, index int) domain.CanonicalProduct {
	rawTitle := textutil.CollapseWhitespace(raw.Title)
	rawDescription := strings.TrimSpace(raw.Description)

	name := rawTitle
	description := rawDescription
	enhanced := false
	if enhancement != nil && enhancement.Succeeded {
		enhanced = true
		if title := textutil.CollapseWhitespace(enhancement.Title); title != "" {
			name = title
		}
		if desc := strings.TrimSpace(enhancement.Description); desc != "" {
			description = desc
		}
	}
	if name == "" {
		name = fmt.Sprintf("Producto %d", index+1)
	}
	if description == "" {
		description = rawTitle
	}
	if description == "" {
		description = name
	}

	sku := strings.TrimSpace(raw.SKU)
	if sku == "" {
		sku = fmt.Sprintf("SKU-%d-%d", n.now().UnixMilli(), index)
	}

	category := strings.TrimSpace(raw.Category)
	if category == "" {
		category = DefaultCategory
	}

	price := normalizePrice(raw.Price)
	compareAt := ""
	if raw.CompareAtPrice != "" {
		compareAt = normalizePrice(raw.CompareAtPrice)
		if compareAt == DefaultPrice {
			compareAt = ""
		}
	}

	return domain.CanonicalProduct{
		Name:           textutil.Truncate(name, MaxNameLength),
		Description:    textutil.Truncate(description, MaxDescriptionLength),
		Category:       category,
		Price:          price,
		CompareAtPrice: compareAt,
		SKU:            sku,
		Stock:          DefaultStock,
		Status:         DefaultStatus,
		Brand:          strings.TrimSpace(raw.Brand),
		Tags:           productTags(raw),
		Images:         capImages(images),
		SourceURL:      raw.SourceURL,
		Flags: domain.Flags{
			Featured: false,
			New:      true,
			OnSale:   isOnSale(price, compareAt),
		},
		Enhanced: enhanced,
	}
}

// normalizePrice keeps plain decimal strings, pulls the number out of labels such as
// "$1,234.56" and maps everything else to "0".
func normalizePrice(raw string) string {
	raw = strings.TrimSpace(raw)
	if decimalPattern.MatchString(raw) {
		return raw
	}
	if extracted := ExtractPrice(raw); decimalPattern.MatchString(extracted) {
		return extracted
	}
	return DefaultPrice
}

func isOnSale(price, compareAt string) bool {
	if compareAt == "" {
		return false
	}
	p, err := strconv.ParseFloat(price, 64)
	if err != nil {
		return false
	}
	c, err := strconv.ParseFloat(compareAt, 64)
	if err != nil {
		return false
	}
	return c > p
}

func productTags(raw domain.RawProductCandidate) []string {
	source := raw.SourceHint
	if source == "" {
		source = domain.SourcePDF
	}
	tags := []string{importedTag, string(source)}
	seen := map[string]bool{importedTag: true, string(source): true}
	for _, tag := range raw.Tags {
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}

func capImages(images []string) []string {
	result := make([]string, 0, MaxImagesPerProduct)
	for _, image := range images {
		if image == "" {
			continue
		}
		result = append(result, image)
		if len(result) == MaxImagesPerProduct {
			break
		}
	}
	return result
}
