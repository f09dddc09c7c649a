package cloudinary

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog/log"

	"github.com/ecometri/catalog-converter/internal/domain"
)

// HostConfig holds the Cloudinary account and delivery settings
type HostConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Size      int
	Quality   string
	Format    string
}

// Configured reports whether credentials are present
func (c HostConfig) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type imageUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// Host uploads product images to Cloudinary, square-cropped and re-encoded
type Host struct {
	uploader       imageUploader
	folder         string
	format         string
	transformation string
	now            func() time.Time
}

// NewHost creates a Cloudinary image host
func NewHost(config HostConfig) (*Host, error) {
	if !config.Configured() {
		return nil, domain.ErrHostingDisabled
	}

	cld, err := cloudinary.NewFromParams(config.CloudName, config.APIKey, config.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}

	return newHost(&cld.Upload, config), nil
}

func newHost(u imageUploader, config HostConfig) *Host {
	if config.Folder == "" {
		config.Folder = "ecometri"
	}
	if config.Size <= 0 {
		config.Size = 1080
	}
	if config.Quality == "" {
		config.Quality = "auto:good"
	}
	if config.Format == "" {
		config.Format = "webp"
	}

	return &Host{
		uploader: u,
		folder:   config.Folder,
		format:   config.Format,
		transformation: fmt.Sprintf("c_fill,g_center,h_%d,w_%d,q_%s",
			config.Size, config.Size, config.Quality),
		now: time.Now,
	}
}

// Upload stores one image under <folder>/<batchID> and returns its HTTPS URL
func (h *Host) Upload(ctx context.Context, batchID string, index int, image domain.ImageSource) (string, error) {
	file, err := uploadSource(image)
	if err != nil {
		return "", err
	}

	resp, err := h.uploader.Upload(ctx, file, h.params(batchID, index))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrImageUploadFailed, err)
	}
	if resp == nil {
		return "", fmt.Errorf("%w: empty response", domain.ErrImageUploadFailed)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", domain.ErrImageUploadFailed, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("%w: response without URL", domain.ErrImageUploadFailed)
	}

	log.Debug().
		Str("component", "cloudinary").
		Str("batch_id", batchID).
		Int("index", index).
		Str("public_id", resp.PublicID).
		Msg("image uploaded")

	return resp.SecureURL, nil
}

func (h *Host) params(batchID string, index int) uploader.UploadParams {
	return uploader.UploadParams{
		PublicID:       fmt.Sprintf("product_%d_%d", index, h.now().UnixMilli()),
		Folder:         fmt.Sprintf("%s/%s", h.folder, batchID),
		Transformation: h.transformation,
		Format:         h.format,
		Tags:           api.CldAPIArray{"ecometri", "product", batchID},
		Overwrite:      api.Bool(false),
	}
}

// uploadSource returns inline bytes as a data URI, or the remote URL for Cloudinary to fetch
func uploadSource(image domain.ImageSource) (string, error) {
	if len(image.Data) > 0 {
		mimeType := image.MimeType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image.Data)), nil
	}
	if image.URL != "" {
		return image.URL, nil
	}
	return "", fmt.Errorf("%w: image has no data", domain.ErrImageUploadFailed)
}
