package usecase

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/textutil"
	"github.com/rs/zerolog/log"
)

// First numeric run of a price label, thousands separators included
var priceNumberPattern = regexp.MustCompile(`[\d,]+\.?\d*`)

// Attributes that may carry an image URL, lazy-load variants after src
var imageAttributes = []string{"src", "data-src", "data-lazy", "data-lazy-src", "data-original"}

// Element groups used by the structural and aggressive strategies
const (
	structuralContainers = "div, article, li"
	aggressiveContainers = "div, article, li, section, a"
	aggressiveTitles     = `h1, h2, h3, h4, h5, [class*="title"], [class*="name"], [class*="nombre"]`
	genericPrices        = `[class*="price"], [class*="precio"], [class*="valor"], [class*="cost"]`
)

// selectorProfile describes where products live in a platform's markup
type selectorProfile struct {
	containers  []string
	title       string
	description string
	price       string
	// a container selector is skipped when it matches this many elements or more
	maxMatches int
}

var selectorProfiles = map[domain.Platform]selectorProfile{
	domain.PlatformEcometri: {
		containers: []string{
			".product-item", ".product-card", "[data-product]", ".item-product",
			"article.product", `[class*="product-"]`, ".product", `[itemtype*="Product"]`,
		},
		title:       `[class*="title"], [class*="name"], [class*="nombre"], h1, h2, h3, h4`,
		description: `[class*="description"], [class*="desc"], [class*="descripcion"], p`,
		price:       genericPrices,
	},
	domain.PlatformWooCommerce: {
		containers:  []string{"li.product", ".type-product", ".product", ".woocommerce-LoopProduct-link"},
		title:       ".woocommerce-loop-product__title, h2, h3, .product-title",
		description: ".woocommerce-product-details__short-description, .description, p",
		price:       ".price .amount, .price, .woocommerce-Price-amount",
	},
	domain.PlatformMagento: {
		containers:  []string{"li.product-item", ".product-item-info", ".products-grid .item"},
		title:       ".product-item-link, .product-item-name, .product-name, h2, h3",
		description: ".product-item-description, .description, p",
		price:       ".price-box .price, [data-price-amount], .price",
	},
	domain.PlatformGeneric: {
		containers: []string{
			`[itemtype*="Product"]`, ".product-item", ".product-card", "[data-product-id]", ".item", "article",
		},
		title:       `h1, h2, h3, h4, .title, [itemprop="name"]`,
		description: `.description, [itemprop="description"], p`,
		price:       `[class*="price"], .price, [itemprop="price"]`,
		maxMatches:  200,
	},
}

// WebExtractorConfig holds the tunable acceptance thresholds of the web extractor
type WebExtractorConfig struct {
	MinTitleLength           int
	MaxTitleLength           int
	AggressiveMinTitleLength int
	AggressiveMaxTitleLength int
	AggressiveMaxImages      int
	MinParentTextLength      int
	MaxSelectorMatches       int
}

// ExtractionStrategy is one pure pass over a page
type ExtractionStrategy struct {
	Name    string
	Extract func(page *Page) []domain.RawProductCandidate
}

// WebExtractor turns a parsed store page into raw product candidates
type WebExtractor struct {
	config WebExtractorConfig
}

// NewWebExtractor creates a web extractor, filling zero thresholds with defaults
func NewWebExtractor(config WebExtractorConfig) *WebExtractor {
	if config.MinTitleLength == 0 {
		config.MinTitleLength = 4
	}
	if config.MaxTitleLength == 0 {
		config.MaxTitleLength = 200
	}
	if config.AggressiveMinTitleLength == 0 {
		config.AggressiveMinTitleLength = 6
	}
	if config.AggressiveMaxTitleLength == 0 {
		config.AggressiveMaxTitleLength = 199
	}
	if config.AggressiveMaxImages == 0 {
		config.AggressiveMaxImages = 200
	}
	if config.MinParentTextLength == 0 {
		config.MinParentTextLength = 10
	}
	if config.MaxSelectorMatches == 0 {
		config.MaxSelectorMatches = 200
	}
	return &WebExtractor{config: config}
}

// Strategies returns the ordered strategy chain for a platform
func (e *WebExtractor) Strategies(platform domain.Platform) []ExtractionStrategy {
	var chain []ExtractionStrategy

	if profile, ok := selectorProfiles[platform]; ok && platform != domain.PlatformGeneric {
		chain = append(chain, e.selectorStrategy(string(platform)+"-selectors", platform, profile))
	}

	generic := selectorProfiles[domain.PlatformGeneric]
	generic.maxMatches = e.config.MaxSelectorMatches
	chain = append(chain,
		e.selectorStrategy("generic-selectors", platform, generic),
		ExtractionStrategy{Name: "structural", Extract: func(page *Page) []domain.RawProductCandidate {
			return e.extractStructural(page, platform)
		}},
		ExtractionStrategy{Name: "aggressive", Extract: func(page *Page) []domain.RawProductCandidate {
			return e.extractAggressive(page, platform)
		}},
	)
	return chain
}

// Extract runs the strategy chain and returns the first non-empty, deduplicated result
// together with the name of the strategy that produced it.
func (e *WebExtractor) Extract(page *Page, platform domain.Platform) ([]domain.RawProductCandidate, string) {
	for _, strategy := range e.Strategies(platform) {
		candidates := DedupeCandidates(strategy.Extract(page))
		if len(candidates) > 0 {
			log.Debug().
				Str("component", "catalog").
				Str("strategy", strategy.Name).
				Int("count", len(candidates)).
				Msg("web extraction strategy matched")
			return candidates, strategy.Name
		}
	}
	return nil, ""
}

func (e *WebExtractor) selectorStrategy(name string, platform domain.Platform, profile selectorProfile) ExtractionStrategy {
	return ExtractionStrategy{
		Name: name,
		Extract: func(page *Page) []domain.RawProductCandidate {
			containers := firstMatchingSelector(page.Doc, profile.containers, profile.maxMatches)
			if containers == nil {
				return nil
			}

			var candidates []domain.RawProductCandidate
			containers.Each(func(_ int, s *goquery.Selection) {
				candidate, ok := e.fromContainer(page, s, profile, platform)
				if ok {
					candidates = append(candidates, candidate)
				}
			})
			return candidates
		},
	}
}

// firstMatchingSelector returns the matches of the first selector yielding at least one
// element, skipping selectors that match maxMatches elements or more when maxMatches > 0.
func firstMatchingSelector(doc *goquery.Document, selectors []string, maxMatches int) *goquery.Selection {
	for _, selector := range selectors {
		matches := doc.Find(selector)
		if matches.Length() == 0 {
			continue
		}
		if maxMatches > 0 && matches.Length() >= maxMatches {
			continue
		}
		return matches
	}
	return nil
}

func (e *WebExtractor) fromContainer(page *Page, s *goquery.Selection, profile selectorProfile, platform domain.Platform) (domain.RawProductCandidate, bool) {
	title := firstText(s, profile.title)
	if title == "" {
		link := s.Find("a").First()
		if attr, ok := link.Attr("title"); ok {
			title = textutil.CollapseWhitespace(attr)
		}
		if title == "" {
			title = textutil.CollapseWhitespace(link.Text())
		}
	}
	if !acceptsLength(title, e.config.MinTitleLength, e.config.MaxTitleLength) {
		return domain.RawProductCandidate{}, false
	}

	description := firstText(s, profile.description)
	if description == "" {
		description = title
	}

	return e.newCandidate(page, platform, title, description,
		ExtractPrice(firstText(s, profile.price)),
		imageRef(s.Find("img").First()),
		nearestLink(s)), true
}

// extractStructural looks for the innermost containers holding an image, a title-like
// element and a price-like element.
func (e *WebExtractor) extractStructural(page *Page, platform domain.Platform) []domain.RawProductCandidate {
	profile := selectorProfiles[domain.PlatformEcometri]

	matches := page.Doc.Find(structuralContainers).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("img").Length() > 0 &&
			s.Find(`[class*="title"], [class*="name"], h1, h2, h3, h4`).Length() > 0 &&
			s.Find(`[class*="price"], [class*="precio"]`).Length() > 0
	})
	innermost := matches.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find(structuralContainers).FilterSelection(matches).Length() == 0
	})

	var candidates []domain.RawProductCandidate
	innermost.Each(func(_ int, s *goquery.Selection) {
		candidate, ok := e.fromContainer(page, s, profile, platform)
		if ok {
			candidates = append(candidates, candidate)
		}
	})
	return candidates
}

// extractAggressive walks from every image to its nearest container with some text and
// accepts it when a plausible title sits nearby.
func (e *WebExtractor) extractAggressive(page *Page, platform domain.Platform) []domain.RawProductCandidate {
	var candidates []domain.RawProductCandidate

	page.Doc.Find("img").EachWithBreak(func(i int, img *goquery.Selection) bool {
		if i >= e.config.AggressiveMaxImages {
			return false
		}

		parent := img.Closest(aggressiveContainers)
		if parent.Length() == 0 {
			return true
		}
		if utf8.RuneCountInString(textutil.CollapseWhitespace(parent.Text())) < e.config.MinParentTextLength {
			return true
		}

		title := firstText(parent, aggressiveTitles)
		if title == "" {
			title = textutil.CollapseWhitespace(parent.Find("a").First().Text())
		}
		if title == "" {
			title = firstText(parent, "strong, b")
		}

		image := imageRef(img)
		if image == "" || !acceptsLength(title, e.config.AggressiveMinTitleLength, e.config.AggressiveMaxTitleLength) {
			return true
		}

		var link string
		if goquery.NodeName(parent) == "a" {
			link, _ = parent.Attr("href")
		} else {
			link, _ = parent.Find("a[href]").First().Attr("href")
		}

		candidates = append(candidates, e.newCandidate(page, platform, title, title,
			ExtractPrice(firstText(parent, genericPrices)), image, link))
		return true
	})

	return candidates
}

func (e *WebExtractor) newCandidate(page *Page, platform domain.Platform, title, description, price, image, link string) domain.RawProductCandidate {
	origin := page.Origin()
	candidate := domain.RawProductCandidate{
		Title:       title,
		Description: description,
		Price:       price,
		SourceURL:   ResolveURL(link, origin),
		SourceHint:  domain.SourceWeb,
		Platform:    platform,
	}
	if resolved := ResolveURL(image, origin); resolved != "" {
		candidate.ImageRefs = []string{resolved}
	}
	return candidate
}

// PageImages lists every distinct image on the page, resolved, in document order,
// leaving out the ones in claimed.
func (e *WebExtractor) PageImages(page *Page, claimed map[string]bool) []string {
	origin := page.Origin()
	seen := make(map[string]bool)
	var images []string
	page.Doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		ref := ResolveURL(imageRef(img), origin)
		if ref == "" || strings.HasPrefix(ref, "data:") || seen[ref] || claimed[ref] {
			return
		}
		seen[ref] = true
		images = append(images, ref)
	})
	return images
}

// DedupeCandidates drops candidates whose case-insensitive trimmed title was already seen
func DedupeCandidates(candidates []domain.RawProductCandidate) []domain.RawProductCandidate {
	seen := make(map[string]bool, len(candidates))
	unique := make([]domain.RawProductCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		key := dedupeKey(candidate.Title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, candidate)
	}
	return unique
}

// ExtractPrice returns the first numeric run of a price label without thousands
// separators, or "0" when there is none.
func ExtractPrice(text string) string {
	match := priceNumberPattern.FindString(text)
	price := strings.ReplaceAll(match, ",", "")
	if price == "" || price == "." {
		return "0"
	}
	return price
}

// ResolveURL makes ref absolute against origin. Protocol-relative refs get https.
func ResolveURL(ref string, origin *url.URL) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	if origin == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return origin.ResolveReference(parsed).String()
}

// imageRef reads the image URL from src or a lazy-load attribute, preferring real URLs
// over inline placeholders.
func imageRef(img *goquery.Selection) string {
	placeholder := ""
	for _, attr := range imageAttributes {
		value, ok := img.Attr(attr)
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			continue
		}
		if strings.HasPrefix(value, "data:") {
			if placeholder == "" {
				placeholder = value
			}
			continue
		}
		return value
	}
	return placeholder
}

// nearestLink returns the first anchor inside s, s itself when it is an anchor, or the
// closest enclosing anchor.
func nearestLink(s *goquery.Selection) string {
	if goquery.NodeName(s) == "a" {
		if href, ok := s.Attr("href"); ok {
			return href
		}
	}
	if href, ok := s.Find("a[href]").First().Attr("href"); ok {
		return href
	}
	href, _ := s.Closest("a").Attr("href")
	return href
}

func firstText(s *goquery.Selection, selector string) string {
	return textutil.CollapseWhitespace(s.Find(selector).First().Text())
}

func acceptsLength(s string, lo, hi int) bool {
	length := utf8.RuneCountInString(s)
	return length >= lo && length <= hi
}
