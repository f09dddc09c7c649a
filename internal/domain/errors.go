package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are missing or malformed
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidURL is returned when a store URL cannot be parsed as an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid store URL")

	// ErrUnsupportedFile is returned when an uploaded file is not a PDF
	ErrUnsupportedFile = errors.New("only PDF files are supported")

	// ErrFileTooLarge is returned when an upload exceeds the configured size limit
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")

	// ErrDocumentUnreadable is returned when a PDF cannot be parsed at all
	ErrDocumentUnreadable = errors.New("document could not be read")

	// ErrFetchFailed is returned when the store page cannot be retrieved
	ErrFetchFailed = errors.New("failed to fetch URL")

	// ErrFeedUnavailable is returned when a structured product feed cannot be retrieved
	ErrFeedUnavailable = errors.New("product feed unavailable")

	// ErrImageDownloadFailed is returned when a single remote image cannot be downloaded
	ErrImageDownloadFailed = errors.New("image download failed")

	// ErrImageUploadFailed is returned when a single image cannot be uploaded to the image host
	ErrImageUploadFailed = errors.New("image upload failed")

	// ErrEnhancementFailed is returned when the AI text enhancer cannot rewrite a product
	ErrEnhancementFailed = errors.New("text enhancement failed")

	// ErrHostingDisabled is returned when no image host is configured
	ErrHostingDisabled = errors.New("image hosting not configured")
)
