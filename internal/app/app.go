package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ecometri/catalog-converter/config"
	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/infrastructure/cloudinary"
	"github.com/ecometri/catalog-converter/internal/infrastructure/enhancer"
	"github.com/ecometri/catalog-converter/internal/infrastructure/pdfdoc"
	"github.com/ecometri/catalog-converter/internal/infrastructure/storefront"
	"github.com/ecometri/catalog-converter/internal/usecase"
)

// NewCatalogService wires the infrastructure adapters selected by cfg into a catalog service.
// Image hosting and text enhancement stay off when they are not configured.
func NewCatalogService(ctx context.Context, cfg *config.Config) (*usecase.CatalogService, error) {
	storefrontClient := storefront.NewClient(storefront.ClientConfig{
		Timeout:           cfg.Scraper.Timeout,
		UserAgent:         cfg.Scraper.UserAgent,
		RequestsPerSecond: cfg.Scraper.RequestsPerSecond,
		MaxRetries:        cfg.Scraper.MaxRetries,
		FeedPageSize:      cfg.Scraper.FeedPageSize,
		FeedMaxPages:      cfg.Scraper.FeedMaxPages,
	})
	if cfg.Server.Environment == "development" {
		storefrontClient.SetDebug(true)
		log.Debug().Msg("storefront client debug mode enabled")
	}

	var images domain.ImageHost
	if cfg.Cloudinary.Enabled() {
		host, err := cloudinary.NewHost(cloudinary.HostConfig{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
			Size:      cfg.Cloudinary.Size,
			Quality:   cfg.Cloudinary.Quality,
			Format:    cfg.Cloudinary.Format,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure image hosting: %w", err)
		}
		images = host
		log.Info().Str("cloud", cfg.Cloudinary.CloudName).Str("folder", cfg.Cloudinary.Folder).Msg("image hosting enabled")
	} else {
		log.Warn().Msg("image hosting not configured, PDF images will be dropped")
	}

	textEnhancer, err := enhancer.New(ctx, enhancer.Config{
		Provider:    cfg.Enhancer.Provider,
		APIKey:      cfg.Enhancer.APIKey,
		Model:       cfg.Enhancer.Model,
		BaseURL:     cfg.Enhancer.BaseURL,
		Temperature: cfg.Enhancer.Temperature,
		Timeout:     cfg.Enhancer.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure text enhancer: %w", err)
	}

	service, err := usecase.NewCatalogService(
		pdfdoc.NewReader(pdfdoc.ReaderConfig{}),
		storefrontClient,
		images,
		textEnhancer,
		ServiceConfig(cfg),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog service: %w", err)
	}
	return service, nil
}

// ServiceConfig maps the extraction and pacing settings onto the usecase config
func ServiceConfig(cfg *config.Config) usecase.CatalogServiceConfig {
	x := cfg.Extraction
	return usecase.CatalogServiceConfig{
		PDF: usecase.PDFExtractorConfig{
			Strategy:       usecase.PDFStrategy(x.PDFStrategy),
			MinLineLength:  x.MinLineLength,
			MinTitleLength: x.PDFMinTitle,
			MaxTitleLength: x.PDFMaxTitle,
			SKUPatterns:    x.SKUPatterns,
		},
		Web: usecase.WebExtractorConfig{
			MinTitleLength:           x.WebMinTitle,
			MaxTitleLength:           x.WebMaxTitle,
			AggressiveMinTitleLength: x.AggressiveMinTitle,
			AggressiveMaxTitleLength: x.AggressiveMaxTitle,
			AggressiveMaxImages:      x.AggressiveMaxImages,
			MinParentTextLength:      x.MinParentText,
			MaxSelectorMatches:       x.MaxSelectorMatches,
		},
		MaxImagesPerProduct: cfg.Scraper.MaxImagesPerProduct,
		UploadInterval:      cfg.Cloudinary.UploadInterval,
		EnhanceInterval:     cfg.Enhancer.Interval,
		EnhanceConcurrency:  cfg.Enhancer.Concurrency,
	}
}
