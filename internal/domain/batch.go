package domain

import "time"

// Warning kinds counted on a batch
const (
	WarnNoProducts          = "no_products"
	WarnFeedUnavailable     = "feed_unavailable"
	WarnImageDownloadFailed = "image_download_failed"
	WarnImageUploadFailed   = "image_upload_failed"
	WarnHostingDisabled     = "image_hosting_disabled"
	WarnEnhancementFailed   = "enhancement_failed"
)

// Batch is one processing run. It lives only for the duration of a request.
type Batch struct {
	ID         string             `json:"id"`
	SourceType SourceType         `json:"sourceType"`
	Products   []CanonicalProduct `json:"products"`
	Warnings   map[string]int     `json:"warnings"`
}

// NewBatch creates an empty batch with the given identifier
func NewBatch(id string, source SourceType) *Batch {
	return &Batch{
		ID:         id,
		SourceType: source,
		Warnings:   make(map[string]int),
	}
}

// Warn increments the counter for a warning kind
func (b *Batch) Warn(kind string) {
	b.Warnings[kind]++
}

// Report summarizes a finished batch for API callers
type Report struct {
	BatchID            string         `json:"batch_id"`
	GeneratedAt        time.Time      `json:"generated_at"`
	SourceType         SourceType     `json:"source_type"`
	StoreURL           string         `json:"store_url,omitempty"`
	PlatformDetected   Platform       `json:"platform_detected,omitempty"`
	TotalProducts      int            `json:"total_products"`
	ImagesExtracted    int            `json:"images_extracted"`
	ImagesUploaded     int            `json:"images_uploaded"`
	ProductsWithImages int            `json:"products_with_images"`
	ProductsEnhanced   int            `json:"products_enhanced"`
	Warnings           map[string]int `json:"warnings"`
}

// ConversionResult is everything a pipeline run returns
type ConversionResult struct {
	Batch    *Batch
	CSV      string
	Filename string
	Report   Report
}
