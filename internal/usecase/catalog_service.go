package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CatalogServiceConfig holds the configuration for the catalog service
type CatalogServiceConfig struct {
	PDF PDFExtractorConfig
	Web WebExtractorConfig

	// MaxImagesPerProduct caps the images kept per scraped product
	MaxImagesPerProduct int

	UploadInterval     time.Duration
	EnhanceInterval    time.Duration
	EnhanceConcurrency int

	// Clock and NewBatchID default to time.Now and random UUIDs
	Clock      func() time.Time
	NewBatchID func() string
}

// CatalogService runs the PDF and store conversion pipelines
type CatalogService struct {
	documents  domain.DocumentReader
	storefront domain.StorefrontClient
	images     domain.ImageHost
	enhancer   domain.TextEnhancer

	pdfExtractor *PDFExtractor
	webExtractor *WebExtractor
	normalizer   *RecordNormalizer
	exporter     *CatalogExporter
	uploads      *TaskSequence
	enhancements *TaskSequence

	maxImages  int
	now        func() time.Time
	newBatchID func() string
}

// NewCatalogService creates a new catalog service. images and enhancer may be nil, in which
// case hosting and enhancement are skipped.
func NewCatalogService(
	documents domain.DocumentReader,
	storefront domain.StorefrontClient,
	images domain.ImageHost,
	enhancer domain.TextEnhancer,
	config CatalogServiceConfig,
) (*CatalogService, error) {
	pdfExtractor, err := NewPDFExtractor(config.PDF)
	if err != nil {
		return nil, err
	}

	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.NewBatchID == nil {
		config.NewBatchID = uuid.NewString
	}
	if config.MaxImagesPerProduct <= 0 || config.MaxImagesPerProduct > MaxImagesPerProduct {
		config.MaxImagesPerProduct = MaxImagesPerProduct
	}

	return &CatalogService{
		documents:    documents,
		storefront:   storefront,
		images:       images,
		enhancer:     enhancer,
		pdfExtractor: pdfExtractor,
		webExtractor: NewWebExtractor(config.Web),
		normalizer:   NewRecordNormalizer(config.Clock),
		exporter:     NewCatalogExporter(),
		uploads:      NewTaskSequence(config.UploadInterval, 1),
		enhancements: NewTaskSequence(config.EnhanceInterval, config.EnhanceConcurrency),
		maxImages:    config.MaxImagesPerProduct,
		now:          config.Clock,
		newBatchID:   config.NewBatchID,
	}, nil
}

// HostingEnabled reports whether extracted images are uploaded to an image host
func (s *CatalogService) HostingEnabled() bool {
	return s.images != nil
}

// EnhancementEnabled reports whether product texts go through the AI enhancer
func (s *CatalogService) EnhancementEnabled() bool {
	return s.enhancer != nil
}

// ConvertPDF turns an uploaded PDF catalog into a CSV export
func (s *CatalogService) ConvertPDF(ctx context.Context, data []byte) (*domain.ConversionResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", domain.ErrInvalidRequest)
	}
	if s.documents == nil {
		return nil, fmt.Errorf("%w: no document reader configured", domain.ErrDocumentUnreadable)
	}

	batch := domain.NewBatch(s.newBatchID(), domain.SourcePDF)
	logger := log.With().Str("component", "catalog").Str("batch_id", batch.ID).Logger()

	doc, err := s.documents.Read(ctx, data)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentUnreadable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
	}

	candidates := s.pdfExtractor.Extract(doc.Text)
	logger.Info().
		Int("pages", doc.Pages).
		Int("images", len(doc.Images)).
		Int("count", len(candidates)).
		Msg("pdf candidates extracted")

	hosted, uploaded := s.hostImages(ctx, batch, doc.Images)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	assignments := AssignOnePerProduct(len(candidates), hosted)

	enhancements := s.enhance(ctx, batch, candidates, func(c domain.RawProductCandidate) string {
		if c.Category != "" {
			return "catálogo PDF, categoría " + c.Category
		}
		return "catálogo PDF"
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.normalize(batch, candidates, enhancements, assignments)

	return s.finish(batch, domain.Report{
		ImagesExtracted: len(doc.Images),
		ImagesUploaded:  uploaded,
	}), nil
}

// ScrapeStore fetches a store page and turns the products found on it into a CSV export
func (s *CatalogService) ScrapeStore(ctx context.Context, storeURL string) (*domain.ConversionResult, error) {
	storeURL = strings.TrimSpace(storeURL)
	if err := ValidateStoreURL(storeURL); err != nil {
		return nil, err
	}
	if s.storefront == nil {
		return nil, fmt.Errorf("%w: no storefront client configured", domain.ErrFetchFailed)
	}

	batch := domain.NewBatch(s.newBatchID(), domain.SourceWeb)
	logger := log.With().Str("component", "catalog").Str("batch_id", batch.ID).Str("url", storeURL).Logger()

	body, err := s.storefront.FetchPage(ctx, storeURL)
	if err != nil {
		if errors.Is(err, domain.ErrFetchFailed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}

	page, err := NewPage(storeURL, body)
	if err != nil {
		return nil, err
	}
	platform := DetectPlatform(page, DefaultPlatformRules)
	logger.Info().Str("platform", string(platform)).Msg("platform detected")

	var candidates []domain.RawProductCandidate
	fromFeed := false
	if FeedPlatforms[platform] {
		feed, err := s.storefront.FetchProductFeed(ctx, page.Origin().String())
		if err != nil {
			batch.Warn(domain.WarnFeedUnavailable)
			logger.Warn().Err(err).Msg("product feed unavailable, falling back to page markup")
		} else {
			candidates = DedupeCandidates(feed)
			fromFeed = len(candidates) > 0
		}
	}

	if !fromFeed {
		var strategy string
		candidates, strategy = s.webExtractor.Extract(page, platform)
		logger.Info().Str("strategy", strategy).Int("count", len(candidates)).Msg("markup candidates extracted")
	}
	for i := range candidates {
		candidates[i].SourceHint = domain.SourceWeb
		candidates[i].Platform = platform
	}
	if len(candidates) == 0 {
		batch.Warn(domain.WarnNoProducts)
	}

	refs := s.collectImageRefs(page, candidates, fromFeed)
	extracted := 0
	for _, r := range refs {
		extracted += len(r)
	}

	assignments, uploaded := s.hostRemoteImages(ctx, batch, refs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hint := fmt.Sprintf("tienda online %s (%s)", page.URL.Host, platform)
	enhancements := s.enhance(ctx, batch, candidates, func(c domain.RawProductCandidate) string {
		if c.Category != "" {
			return hint + ", categoría " + c.Category
		}
		return hint
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.normalize(batch, candidates, enhancements, assignments)

	return s.finish(batch, domain.Report{
		StoreURL:         storeURL,
		PlatformDetected: platform,
		ImagesExtracted:  extracted,
		ImagesUploaded:   uploaded,
	}), nil
}

// ValidateStoreURL accepts absolute http and https URLs with a host
func ValidateStoreURL(storeURL string) error {
	if storeURL == "" {
		return fmt.Errorf("%w: store URL is required", domain.ErrInvalidURL)
	}
	parsed, err := url.Parse(storeURL)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme must be http or https", domain.ErrInvalidURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}
	return nil
}

// collectImageRefs returns each candidate's own image references, capped per product.
// On the markup path, candidates without images share the page's unclaimed images.
func (s *CatalogService) collectImageRefs(page *Page, candidates []domain.RawProductCandidate, fromFeed bool) [][]string {
	refs := make([][]string, len(candidates))
	claimed := make(map[string]bool)
	var missing []int

	for i, c := range candidates {
		for _, ref := range c.ImageRefs {
			ref = ResolveURL(ref, page.Origin())
			if ref == "" || strings.HasPrefix(ref, "data:") || len(refs[i]) >= s.maxImages {
				continue
			}
			refs[i] = append(refs[i], ref)
			claimed[ref] = true
		}
		if len(refs[i]) == 0 {
			missing = append(missing, i)
		}
	}

	if fromFeed || len(missing) == 0 {
		return refs
	}

	leftovers := s.webExtractor.PageImages(page, claimed)
	for j, assigned := range AssignEvenly(len(missing), leftovers) {
		refs[missing[j]] = assigned
	}
	return refs
}

// hostImages uploads PDF images in order. The returned slice is aligned with images and
// holds "" where an upload failed.
func (s *CatalogService) hostImages(ctx context.Context, batch *domain.Batch, images []domain.ImageSource) ([]string, int) {
	hosted := make([]string, len(images))
	if len(images) == 0 {
		return hosted, 0
	}
	if s.images == nil {
		batch.Warnings[domain.WarnHostingDisabled] += len(images)
		return hosted, 0
	}

	errs := s.uploads.Run(ctx, len(images), func(ctx context.Context, i int) error {
		hostedURL, err := s.images.Upload(ctx, batch.ID, i, images[i])
		if err != nil {
			return err
		}
		hosted[i] = hostedURL
		return nil
	})

	uploaded := 0
	for i, err := range errs {
		if err != nil {
			batch.Warn(domain.WarnImageUploadFailed)
			log.Warn().Err(err).Str("component", "catalog").Str("batch_id", batch.ID).Int("image", i).Msg("image upload failed")
			continue
		}
		uploaded++
	}
	return hosted, uploaded
}

// hostRemoteImages downloads and re-hosts scraped images. Without an image host the
// source URLs are kept as they are.
func (s *CatalogService) hostRemoteImages(ctx context.Context, batch *domain.Batch, refs [][]string) ([][]string, int) {
	if s.images == nil {
		return refs, 0
	}

	type job struct {
		product int
		ref     string
	}
	var jobs []job
	for product, productRefs := range refs {
		for _, ref := range productRefs {
			jobs = append(jobs, job{product: product, ref: ref})
		}
	}

	hosted := make([]string, len(jobs))
	downloadFailed := make([]bool, len(jobs))
	errs := s.uploads.Run(ctx, len(jobs), func(ctx context.Context, i int) error {
		image, err := s.storefront.FetchImage(ctx, jobs[i].ref)
		if err != nil {
			downloadFailed[i] = true
			return err
		}
		hostedURL, err := s.images.Upload(ctx, batch.ID, i, *image)
		if err != nil {
			return err
		}
		hosted[i] = hostedURL
		return nil
	})

	assignments := make([][]string, len(refs))
	uploaded := 0
	for i, err := range errs {
		if err != nil {
			kind := domain.WarnImageUploadFailed
			if downloadFailed[i] {
				kind = domain.WarnImageDownloadFailed
			}
			batch.Warn(kind)
			log.Warn().Err(err).Str("component", "catalog").Str("batch_id", batch.ID).Str("url", jobs[i].ref).Msg("image hosting failed")
			continue
		}
		uploaded++
		assignments[jobs[i].product] = append(assignments[jobs[i].product], hosted[i])
	}
	return assignments, uploaded
}

// enhance asks the text enhancer to rewrite every candidate. Failed items are nil.
func (s *CatalogService) enhance(
	ctx context.Context,
	batch *domain.Batch,
	candidates []domain.RawProductCandidate,
	hint func(domain.RawProductCandidate) string,
) []*domain.Enhancement {
	enhancements := make([]*domain.Enhancement, len(candidates))
	if s.enhancer == nil || len(candidates) == 0 {
		return enhancements
	}

	errs := s.enhancements.Run(ctx, len(candidates), func(ctx context.Context, i int) error {
		c := candidates[i]
		result, err := s.enhancer.Enhance(ctx, c.Title, c.Description, hint(c))
		if err != nil {
			return err
		}
		enhancements[i] = &result
		return nil
	})

	for i, err := range errs {
		if err != nil {
			enhancements[i] = nil
			batch.Warn(domain.WarnEnhancementFailed)
			log.Warn().Err(err).Str("component", "catalog").Str("batch_id", batch.ID).Int("product", i).Msg("enhancement failed")
		}
	}
	return enhancements
}

func (s *CatalogService) normalize(batch *domain.Batch, candidates []domain.RawProductCandidate, enhancements []*domain.Enhancement, images [][]string) {
	batch.Products = make([]domain.CanonicalProduct, len(candidates))
	for i, c := range candidates {
		var productImages []string
		if i < len(images) {
			productImages = images[i]
		}
		batch.Products[i] = s.normalizer.Merge(c, enhancements[i], productImages, i)
	}
}

// finish renders the export and fills the report counters derived from the products
func (s *CatalogService) finish(batch *domain.Batch, report domain.Report) *domain.ConversionResult {
	generatedAt := s.now()

	report.BatchID = batch.ID
	report.GeneratedAt = generatedAt
	report.SourceType = batch.SourceType
	report.TotalProducts = len(batch.Products)
	report.Warnings = batch.Warnings
	for _, p := range batch.Products {
		if len(p.Images) > 0 {
			report.ProductsWithImages++
		}
		if p.Enhanced {
			report.ProductsEnhanced++
		}
	}

	log.Info().
		Str("component", "catalog").
		Str("batch_id", batch.ID).
		Str("source", string(batch.SourceType)).
		Int("count", report.TotalProducts).
		Int("images_uploaded", report.ImagesUploaded).
		Interface("warnings", batch.Warnings).
		Msg("batch converted")

	return &domain.ConversionResult{
		Batch:    batch,
		CSV:      s.exporter.Export(batch.Products),
		Filename: s.exporter.Filename(batch.SourceType, batch.ID, generatedAt),
		Report:   report,
	}
}
