package storefront

import (
	"encoding/json"
	"strings"

	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/textutil"
)

// ProductsResponse is the body of a Shopify /products.json page
type ProductsResponse struct {
	Products []Product `json:"products"`
}

// Product is one entry of the Shopify product feed
type Product struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Handle      string    `json:"handle"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Tags        Tags      `json:"tags"`
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images"`
}

// Variant carries price and SKU of a product option
type Variant struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	SKU            string `json:"sku"`
	Price          Price  `json:"price"`
	CompareAtPrice Price  `json:"compare_at_price"`
}

// Price is a feed amount, sent as a string, a number or null
type Price string

// UnmarshalJSON implements json.Unmarshaler
func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Price(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

// Image is a product image of the feed
type Image struct {
	Src      string `json:"src"`
	Position int    `json:"position"`
}

// Tags accepts both the array form of the public feed and the comma separated string of
// the admin API.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler
func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = cleanTags(list)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*t = cleanTags(strings.Split(joined, ","))
	return nil
}

func cleanTags(raw []string) Tags {
	tags := make(Tags, 0, len(raw))
	for _, tag := range raw {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// MapProduct converts a feed product to a raw candidate. Products without a title are
// skipped.
func MapProduct(p Product, storeBase string) (domain.RawProductCandidate, bool) {
	title := textutil.CollapseWhitespace(p.Title)
	if title == "" {
		return domain.RawProductCandidate{}, false
	}

	candidate := domain.RawProductCandidate{
		Title:       title,
		Description: textutil.StripMarkup(p.BodyHTML),
		Category:    strings.TrimSpace(p.ProductType),
		Brand:       strings.TrimSpace(p.Vendor),
		Tags:        []string(p.Tags),
		SourceHint:  domain.SourceWeb,
		Platform:    domain.PlatformShopify,
	}

	if len(p.Variants) > 0 {
		variant := p.Variants[0]
		candidate.Price = string(variant.Price)
		candidate.CompareAtPrice = string(variant.CompareAtPrice)
		candidate.SKU = strings.TrimSpace(variant.SKU)
	}

	for _, image := range p.Images {
		if src := strings.TrimSpace(image.Src); src != "" {
			if strings.HasPrefix(src, "//") {
				src = "https:" + src
			}
			candidate.ImageRefs = append(candidate.ImageRefs, src)
		}
	}

	if p.Handle != "" {
		candidate.SourceURL = strings.TrimRight(storeBase, "/") + "/products/" + p.Handle
	}

	return candidate, true
}
