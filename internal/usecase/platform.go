package usecase

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ecometri/catalog-converter/internal/domain"
)

// Page is a fetched store page parsed once and shared by detection and extraction
type Page struct {
	URL  *url.URL
	HTML string
	Doc  *goquery.Document
}

// NewPage parses html fetched from pageURL
func NewPage(pageURL, html string) (*Page, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidURL, pageURL)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Page{URL: u, HTML: html, Doc: doc}, nil
}

// Origin returns scheme://host/ of the page
func (p *Page) Origin() *url.URL {
	return &url.URL{Scheme: p.URL.Scheme, Host: p.URL.Host, Path: "/"}
}

// PlatformRule pairs a fingerprint predicate with the platform it identifies
type PlatformRule struct {
	Platform domain.Platform
	Matches  func(page *Page) bool
}

// DefaultPlatformRules are evaluated in priority order; the first match wins
var DefaultPlatformRules = []PlatformRule{
	{Platform: domain.PlatformEcometri, Matches: isEcometri},
	{Platform: domain.PlatformShopify, Matches: isShopify},
	{Platform: domain.PlatformWooCommerce, Matches: isWooCommerce},
	{Platform: domain.PlatformMagento, Matches: isMagento},
}

// DetectPlatform returns the platform of the first matching rule, or generic
func DetectPlatform(page *Page, rules []PlatformRule) domain.Platform {
	for _, rule := range rules {
		if rule.Matches(page) {
			return rule.Platform
		}
	}
	return domain.PlatformGeneric
}

// FeedPlatforms publish a public structured product feed that replaces markup scraping
var FeedPlatforms = map[domain.Platform]bool{
	domain.PlatformShopify: true,
}

func isEcometri(page *Page) bool {
	host := strings.ToLower(page.URL.Host)
	if strings.Contains(host, "ecometri.shop") || strings.Contains(host, "ecometri.com") {
		return true
	}
	if strings.Contains(strings.ToLower(page.HTML), "ecometri") {
		return true
	}
	return page.Doc.Find(`[class*="ecometri"]`).Length() > 0
}

func isShopify(page *Page) bool {
	for _, marker := range []string{"Shopify.theme", "cdn.shopify.com", "myshopify.com"} {
		if strings.Contains(page.HTML, marker) {
			return true
		}
	}
	return page.Doc.Find(`meta[content*="Shopify"]`).Length() > 0
}

func isWooCommerce(page *Page) bool {
	if page.Doc.Find("body").HasClass("woocommerce") {
		return true
	}
	if page.Doc.Find(`link[href*="woocommerce"]`).Length() > 0 {
		return true
	}
	return strings.Contains(page.HTML, "woocommerce")
}

func isMagento(page *Page) bool {
	if strings.Contains(page.HTML, "Magento") {
		return true
	}
	return page.Doc.Find(`script[src*="/mage/"], script[type="text/x-magento-init"]`).Length() > 0
}
