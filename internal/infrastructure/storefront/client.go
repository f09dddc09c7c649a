package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/ecometri/catalog-converter/internal/domain"
)

// Response size limits
const (
	maxPageBytes  = 10 << 20
	maxFeedBytes  = 20 << 20
	maxImageBytes = 15 << 20
)

// ClientConfig holds the configuration for the storefront client
type ClientConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	MaxRetries        int
	FeedPageSize      int
	FeedMaxPages      int
}

// Client fetches store pages, Shopify product feeds and product images
type Client struct {
	httpClient   *http.Client
	userAgent    string
	rateLimiter  *rate.Limiter
	maxRetries   int
	feedPageSize int
	feedMaxPages int
	backoff      func(attempt int) time.Duration
	debug        bool
}

// NewClient creates a new storefront client
func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (compatible; EcometriCatalogBot/1.0)"
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 5
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.FeedPageSize <= 0 {
		config.FeedPageSize = 250
	}
	if config.FeedMaxPages <= 0 {
		config.FeedMaxPages = 10
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		userAgent:    config.UserAgent,
		rateLimiter:  rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 5),
		maxRetries:   config.MaxRetries,
		feedPageSize: config.FeedPageSize,
		feedMaxPages: config.FeedMaxPages,
		backoff:      exponentialBackoff,
	}
}

// SetDebug enables or disables verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		log.Debug().Str("component", "storefront").Msgf(format, args...)
	}
}

// exponentialBackoff returns the wait before retry attempt n: 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// statusError is a non-200 response
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// get executes a GET with rate limiting and retries transient failures.
// It returns the body, at most limit bytes, and the response content type.
func (c *Client) get(ctx context.Context, reqURL, accept string, limit int64) ([]byte, string, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, "", fmt.Errorf("rate limiter error: %w", err)
		}

		body, contentType, err := c.do(ctx, reqURL, accept, limit)
		if err == nil {
			return body, contentType, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !retryable(se.code) {
			return nil, "", err
		}
		if errors.Is(err, errBodyTooLarge) {
			return nil, "", err
		}
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		log.Warn().
			Str("component", "storefront").
			Str("url", reqURL).
			Int("attempt", attempt).
			Err(err).
			Msg("request failed")

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, "", ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}
	}
	return nil, "", lastErr
}

func (c *Client) do(ctx context.Context, reqURL, accept string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := readLimitedBody(resp.Body, limit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response: %w", err)
	}
	c.debugLog("GET %s -> %d (%d bytes)", reqURL, resp.StatusCode, len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, "", &statusError{code: resp.StatusCode}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// errBodyTooLarge is returned instead of a truncated body
var errBodyTooLarge = errors.New("response body exceeds size limit")

func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", errBodyTooLarge, limit)
	}
	return body, nil
}

// FetchPage downloads the HTML of a store page
func (c *Client) FetchPage(ctx context.Context, pageURL string) (string, error) {
	body, _, err := c.get(ctx, pageURL, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8", maxPageBytes)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %s: %v", domain.ErrFetchFailed, pageURL, err)
	}
	return string(body), nil
}

// FetchProductFeed reads the public Shopify products.json feed of a store page by page.
// It stops at the first short page or after the configured page count.
func (c *Client) FetchProductFeed(ctx context.Context, storeURL string) ([]domain.RawProductCandidate, error) {
	base := strings.TrimRight(storeURL, "/")

	var candidates []domain.RawProductCandidate
	for page := 1; page <= c.feedMaxPages; page++ {
		params := url.Values{}
		params.Set("limit", fmt.Sprintf("%d", c.feedPageSize))
		params.Set("page", fmt.Sprintf("%d", page))
		reqURL := fmt.Sprintf("%s/products.json?%s", base, params.Encode())

		body, _, err := c.get(ctx, reqURL, "application/json", maxFeedBytes)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
			}
			log.Warn().Str("component", "storefront").Int("page", page).Err(err).Msg("stopping feed pagination")
			break
		}

		var feed ProductsResponse
		if err := json.Unmarshal(body, &feed); err != nil {
			if page == 1 {
				return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrFeedUnavailable, err)
			}
			break
		}

		for _, product := range feed.Products {
			if candidate, ok := MapProduct(product, base); ok {
				candidates = append(candidates, candidate)
			}
		}

		log.Debug().
			Str("component", "storefront").
			Str("url", base).
			Int("page", page).
			Int("count", len(feed.Products)).
			Msg("feed page fetched")

		if len(feed.Products) < c.feedPageSize {
			break
		}
	}

	return candidates, nil
}

// FetchImage downloads a product image
func (c *Client) FetchImage(ctx context.Context, imageURL string) (*domain.ImageSource, error) {
	if !strings.HasPrefix(imageURL, "http://") && !strings.HasPrefix(imageURL, "https://") {
		return nil, fmt.Errorf("%w: unsupported image URL %q", domain.ErrImageDownloadFailed, imageURL)
	}

	body, contentType, err := c.get(ctx, imageURL, "image/avif,image/webp,image/*,*/*;q=0.8", maxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrImageDownloadFailed, err)
	}

	mimeType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(body)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%w: %s is not an image (%s)", domain.ErrImageDownloadFailed, imageURL, mimeType)
	}

	return &domain.ImageSource{Data: body, MimeType: mimeType, URL: imageURL}, nil
}
