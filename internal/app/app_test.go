package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecometri/catalog-converter/config"
	"github.com/ecometri/catalog-converter/internal/usecase"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Scraper: config.ScraperConfig{
			Timeout:             5 * time.Second,
			RequestsPerSecond:   5,
			MaxRetries:          1,
			FeedPageSize:        250,
			FeedMaxPages:        10,
			MaxImagesPerProduct: 3,
		},
		Extraction: config.ExtractionConfig{
			PDFStrategy:        "sku",
			MinLineLength:      8,
			PDFMinTitle:        12,
			PDFMaxTitle:        150,
			WebMinTitle:        5,
			WebMaxTitle:        120,
			AggressiveMinTitle: 7,
			AggressiveMaxTitle: 99,
		},
		Cloudinary: config.CloudinaryConfig{
			Folder:         "ecometri",
			Size:           1080,
			Quality:        "auto:good",
			Format:         "webp",
			UploadInterval: 250 * time.Millisecond,
		},
		Enhancer: config.EnhancerConfig{
			Provider:    "none",
			Interval:    time.Second,
			Concurrency: 2,
			Timeout:     10 * time.Second,
		},
	}
}

func TestNewCatalogService_Defaults(t *testing.T) {
	service, err := NewCatalogService(context.Background(), testConfig())

	require.NoError(t, err)
	assert.False(t, service.HostingEnabled())
	assert.False(t, service.EnhancementEnabled())
}

func TestNewCatalogService_OptionalCollaborators(t *testing.T) {
	cfg := testConfig()
	cfg.Cloudinary.CloudName = "demo"
	cfg.Cloudinary.APIKey = "key"
	cfg.Cloudinary.APISecret = "secret"
	cfg.Enhancer.Provider = "openai"
	cfg.Enhancer.APIKey = "sk-test"

	service, err := NewCatalogService(context.Background(), cfg)

	require.NoError(t, err)
	assert.True(t, service.HostingEnabled())
	assert.True(t, service.EnhancementEnabled())
}

func TestNewCatalogService_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name:   "invalid SKU pattern",
			mutate: func(c *config.Config) { c.Extraction.SKUPatterns = []string{"[unclosed"} },
		},
		{
			name:   "enhancer without key",
			mutate: func(c *config.Config) { c.Enhancer.Provider = "anthropic" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			_, err := NewCatalogService(context.Background(), cfg)
			assert.Error(t, err)
		})
	}
}

func TestServiceConfig(t *testing.T) {
	got := ServiceConfig(testConfig())

	assert.Equal(t, usecase.PDFStrategySKU, got.PDF.Strategy)
	assert.Equal(t, 8, got.PDF.MinLineLength)
	assert.Equal(t, 12, got.PDF.MinTitleLength)
	assert.Equal(t, 150, got.PDF.MaxTitleLength)
	assert.Equal(t, 5, got.Web.MinTitleLength)
	assert.Equal(t, 99, got.Web.AggressiveMaxTitleLength)
	assert.Equal(t, 3, got.MaxImagesPerProduct)
	assert.Equal(t, 250*time.Millisecond, got.UploadInterval)
	assert.Equal(t, time.Second, got.EnhanceInterval)
	assert.Equal(t, 2, got.EnhanceConcurrency)
}
