package domain

import "context"

// DocumentReader extracts text and images from raw PDF bytes
type DocumentReader interface {
	Read(ctx context.Context, data []byte) (*Document, error)
}

// StorefrontClient fetches store pages, structured product feeds and remote images
type StorefrontClient interface {
	FetchPage(ctx context.Context, pageURL string) (string, error)
	FetchProductFeed(ctx context.Context, storeURL string) ([]RawProductCandidate, error)
	FetchImage(ctx context.Context, imageURL string) (*ImageSource, error)
}

// ImageHost uploads an image under a batch namespace and returns its hosted URL
type ImageHost interface {
	Upload(ctx context.Context, batchID string, index int, image ImageSource) (string, error)
}

// TextEnhancer rewrites a product title and description.
// contextHint is free-form context such as the source page or the detected category.
type TextEnhancer interface {
	Enhance(ctx context.Context, rawTitle, rawDescription, contextHint string) (Enhancement, error)
}
