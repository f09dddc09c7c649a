package domain

// SourceType identifies where a batch of products came from
type SourceType string

const (
	SourcePDF SourceType = "pdf"
	SourceWeb SourceType = "web"
)

// Platform is the detected storefront software behind a scraped page
type Platform string

const (
	PlatformEcometri    Platform = "ecometri"
	PlatformShopify     Platform = "shopify"
	PlatformWooCommerce Platform = "woocommerce"
	PlatformMagento     Platform = "magento"
	PlatformGeneric     Platform = "generic"
	PlatformUnknown     Platform = "unknown"
)

// RawProductCandidate is an unverified product record produced by an extractor
type RawProductCandidate struct {
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Price          string     `json:"price,omitempty"` // unparsed
	CompareAtPrice string     `json:"compareAtPrice,omitempty"`
	SKU            string     `json:"sku,omitempty"`
	Category       string     `json:"category,omitempty"`
	Brand          string     `json:"brand,omitempty"`
	Tags           []string   `json:"tags,omitempty"`
	ImageRefs      []string   `json:"imageRefs,omitempty"` // urls or inline data
	SourceURL      string     `json:"sourceUrl,omitempty"`
	SourceHint     SourceType `json:"sourceHint"`
	Platform       Platform   `json:"platform,omitempty"` // web only
}

// Flags are the boolean merchandising markers of a canonical product
type Flags struct {
	Featured bool `json:"featured"`
	New      bool `json:"new"`
	OnSale   bool `json:"onSale"`
}

// CanonicalProduct is the normalized record ready for export
type CanonicalProduct struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Subcategory    string   `json:"subcategory,omitempty"`
	Price          string   `json:"price"`
	CompareAtPrice string   `json:"compareAtPrice,omitempty"`
	SKU            string   `json:"sku"`
	Stock          string   `json:"stock"`
	Status         string   `json:"status"`
	Brand          string   `json:"brand,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Images         []string `json:"images"`
	SourceURL      string   `json:"sourceUrl,omitempty"`
	Flags          Flags    `json:"flags"`
	Enhanced       bool     `json:"enhanced"`
}

// Enhancement is the result of the AI text enhancer for one candidate
type Enhancement struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Succeeded   bool   `json:"succeeded"`
	Model       string `json:"model,omitempty"`
}

// ImageSource is a single image handed to the image host, either as bytes or a remote URL
type ImageSource struct {
	Data     []byte
	MimeType string
	URL      string
}

// Document is the text and image content extracted from an uploaded PDF
type Document struct {
	Text   string
	Images []ImageSource
	Pages  int
}
