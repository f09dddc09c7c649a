package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/usecase"
)

const (
	serviceName    = "ecometri-catalog-converter"
	serviceVersion = "1.0.0"

	// previewLimit caps the products echoed back next to the CSV
	previewLimit = 10

	// multipartOverhead is the slack allowed on top of the file limit for form boundaries
	multipartOverhead = 1 << 20
)

// CatalogConverter runs the conversion pipelines behind the API
type CatalogConverter interface {
	ConvertPDF(ctx context.Context, data []byte) (*domain.ConversionResult, error)
	ScrapeStore(ctx context.Context, storeURL string) (*domain.ConversionResult, error)
	HostingEnabled() bool
	EnhancementEnabled() bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	converter      CatalogConverter
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler. maxUploadBytes limits PDF uploads.
func NewHandler(converter CatalogConverter, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 50 << 20
	}
	return &Handler{converter: converter, maxUploadBytes: maxUploadBytes}
}

// ScrapeStoreRequest is the body of POST /api/v1/scrape-store
type ScrapeStoreRequest struct {
	StoreURL string `json:"storeUrl" binding:"required"`
}

// ConversionResponse is returned by both conversion endpoints
type ConversionResponse struct {
	Success  bool                      `json:"success"`
	CSV      string                    `json:"csv"`
	Report   domain.Report             `json:"report"`
	Metadata ConversionMetadata        `json:"metadata"`
	Products []domain.CanonicalProduct `json:"products"`
}

// ConversionMetadata describes the generated CSV
type ConversionMetadata struct {
	Filename    string `json:"filename"`
	RowCount    int    `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Info describes the API
func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": gin.H{
			"health":      "GET /health",
			"processPdf":  "POST /api/v1/process-pdf",
			"scrapeStore": "POST /api/v1/scrape-store",
		},
	})
}

// HealthCheck returns the health status of the API and which optional services are configured
func (h *Handler) HealthCheck(c *gin.Context) {
	services := gin.H{"imageHosting": false, "aiEnhancement": false}
	if h.converter != nil {
		services["imageHosting"] = h.converter.HostingEnabled()
		services["aiEnhancement"] = h.converter.EnhancementEnabled()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services":  services,
	})
}

// ProcessPDF converts an uploaded PDF catalog (multipart field "pdf") into CSV
func (h *Handler) ProcessPDF(c *gin.Context) {
	if h.converter == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "catalog service not configured"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	data, err := h.readUpload(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.converter.ConvertPDF(c.Request.Context(), data)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newConversionResponse(result))
}

// ScrapeStore scrapes a store URL into CSV
func (h *Handler) ScrapeStore(c *gin.Context) {
	if h.converter == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "catalog service not configured"})
		return
	}

	var req ScrapeStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: storeUrl is required", domain.ErrInvalidRequest))
		return
	}

	result, err := h.converter.ScrapeStore(c.Request.Context(), req.StoreURL)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newConversionResponse(result))
}

func (h *Handler) readUpload(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.ErrFileTooLarge
		}
		return nil, fmt.Errorf("%w: no PDF file uploaded", domain.ErrInvalidRequest)
	}

	if fileHeader.Size > h.maxUploadBytes {
		return nil, domain.ErrFileTooLarge
	}
	if fileHeader.Header.Get("Content-Type") != "application/pdf" {
		return nil, domain.ErrUnsupportedFile
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return data, nil
}

// respondError maps pipeline errors to status codes. 5xx bodies carry no internal detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, message := statusFor(err)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Str("component", "http").
		Str("path", c.FullPath()).
		Int("status", status).
		Err(err).
		Msg("request failed")

	c.JSON(status, ErrorResponse{Success: false, Error: message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrUnsupportedFile):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, domain.ErrFileTooLarge.Error()
	case errors.Is(err, domain.ErrDocumentUnreadable):
		return http.StatusUnprocessableEntity, domain.ErrDocumentUnreadable.Error()
	case errors.Is(err, domain.ErrFetchFailed):
		return http.StatusBadGateway, domain.ErrFetchFailed.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func newConversionResponse(result *domain.ConversionResult) ConversionResponse {
	products := []domain.CanonicalProduct{}
	rows := 0
	if result.Batch != nil {
		rows = len(result.Batch.Products)
		preview := result.Batch.Products
		if len(preview) > previewLimit {
			preview = preview[:previewLimit]
		}
		products = append(products, preview...)
	}

	return ConversionResponse{
		Success: true,
		CSV:     result.CSV,
		Report:  result.Report,
		Metadata: ConversionMetadata{
			Filename:    result.Filename,
			RowCount:    rows,
			ColumnCount: usecase.ColumnCount,
		},
		Products: products,
	}
}
