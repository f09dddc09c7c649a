package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/ecometri/catalog-converter/internal/domain"
)

// Glyphs whose baselines differ by less than this many points share a row
const rowTolerance = 2.0

var disableConfigDir sync.Once

// ReaderConfig holds the configuration for the PDF reader
type ReaderConfig struct {
	// Images must be strictly larger than this in both dimensions
	MinImageSide int
	MaxImages    int
}

// Reader extracts text with ledongthuc/pdf and embedded images with pdfcpu
type Reader struct {
	minImageSide int
	maxImages    int
}

// NewReader creates a new PDF reader
func NewReader(config ReaderConfig) *Reader {
	disableConfigDir.Do(api.DisableConfigDir)

	if config.MinImageSide <= 0 {
		config.MinImageSide = 50
	}
	if config.MaxImages <= 0 {
		config.MaxImages = 500
	}
	return &Reader{minImageSide: config.MinImageSide, maxImages: config.MaxImages}
}

// Read parses a PDF held in memory. Text failures make the whole document unreadable;
// image extraction failures only drop the images.
func (r *Reader) Read(ctx context.Context, data []byte) (*domain.Document, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return nil, fmt.Errorf("%w: missing PDF header", domain.ErrDocumentUnreadable)
	}

	text, pages, err := r.extractText(ctx, data)
	if err != nil {
		return nil, err
	}

	images, err := r.extractImages(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Str("component", "pdfdoc").Err(err).Msg("image extraction failed, continuing with text only")
		images = nil
	}

	log.Debug().
		Str("component", "pdfdoc").
		Int("pages", pages).
		Int("chars", len(text)).
		Int("images", len(images)).
		Msg("document read")

	return &domain.Document{Text: text, Images: images, Pages: pages}, nil
}

func (r *Reader) extractText(ctx context.Context, data []byte) (text string, pages int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, pages = "", 0
			err = fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrDocumentUnreadable, err)
	}

	pages = reader.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := pageLines(page)
		if err != nil {
			return "", 0, fmt.Errorf("%w: page %d: %v", domain.ErrDocumentUnreadable, i, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageText)
	}

	return b.String(), pages, nil
}

// pageLines rebuilds the lines of a page from positioned glyphs. Fonts without width
// tables leave no way to find word gaps, so those pages fall back to the plain text
// stream.
func pageLines(page pdf.Page) (string, error) {
	texts := page.Content().Text
	for _, t := range texts {
		if t.W > 0 {
			return assembleRows(texts), nil
		}
	}
	return page.GetPlainText(nil)
}

// assembleRows groups glyphs by baseline, top to bottom, and joins each row left to right,
// inserting a space wherever the horizontal gap exceeds a fraction of the font size.
func assembleRows(texts []pdf.Text) string {
	type row struct {
		y      float64
		glyphs []pdf.Text
	}

	var rows []*row
	for _, t := range texts {
		if t.S == "" {
			continue
		}
		var target *row
		for _, candidate := range rows {
			if math.Abs(candidate.y-t.Y) < rowTolerance {
				target = candidate
				break
			}
		}
		if target == nil {
			target = &row{y: t.Y}
			rows = append(rows, target)
		}
		target.glyphs = append(target.glyphs, t)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		sort.SliceStable(row.glyphs, func(i, j int) bool { return row.glyphs[i].X < row.glyphs[j].X })

		var b strings.Builder
		for i, g := range row.glyphs {
			if i > 0 {
				prev := row.glyphs[i-1]
				gap := g.X - (prev.X + prev.W)
				if gap > math.Max(prev.FontSize*0.15, 0.5) {
					b.WriteString(" ")
				}
			}
			b.WriteString(g.S)
		}
		lines = append(lines, strings.TrimSpace(b.String()))
	}
	return strings.Join(lines, "\n")
}

type pageImage struct {
	page   int
	object int
	source domain.ImageSource
}

func (r *Reader) extractImages(ctx context.Context, data []byte) (images []domain.ImageSource, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			images = nil
			err = fmt.Errorf("image extraction panicked: %v", rec)
		}
	}()

	sizes, err := imageSizes(data)
	if err != nil {
		return nil, err
	}

	var found []pageImage
	digest := func(img model.Image, _ bool, _ int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(found) >= r.maxImages {
			return nil
		}
		payload, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("failed to read image on page %d: %w", img.PageNr, err)
		}
		if len(payload) == 0 {
			return nil
		}
		width, height := imageSize(img, sizes, payload)
		if width <= r.minImageSide || height <= r.minImageSide {
			return nil
		}
		found = append(found, pageImage{
			page:   img.PageNr,
			object: img.ObjNr,
			source: domain.ImageSource{Data: payload, MimeType: mimeType(img.FileType, payload)},
		})
		return nil
	}

	if err := api.ExtractImages(bytes.NewReader(data), nil, digest, relaxedConfig()); err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].page != found[j].page {
			return found[i].page < found[j].page
		}
		return found[i].object < found[j].object
	})

	images = make([]domain.ImageSource, len(found))
	for i, f := range found {
		images[i] = f.source
	}
	return images, nil
}

type imageDimensions struct {
	width, height int
}

// imageSizes lists the dimensions of every image XObject keyed by object number.
// The extraction callback does not carry them.
func imageSizes(data []byte) (map[int]imageDimensions, error) {
	pages, err := api.Images(bytes.NewReader(data), nil, relaxedConfig())
	if err != nil {
		return nil, err
	}
	sizes := make(map[int]imageDimensions)
	for _, page := range pages {
		for objNr, img := range page {
			sizes[objNr] = imageDimensions{width: img.Width, height: img.Height}
		}
	}
	return sizes, nil
}

// imageSize resolves the pixel size of an extracted image, decoding the payload header
// when the document listing has no entry for it
func imageSize(img model.Image, sizes map[int]imageDimensions, payload []byte) (int, int) {
	if img.Width > 0 && img.Height > 0 {
		return img.Width, img.Height
	}
	if size, ok := sizes[img.ObjNr]; ok && size.width > 0 && size.height > 0 {
		return size.width, size.height
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func relaxedConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func mimeType(fileType string, payload []byte) string {
	switch strings.ToLower(fileType) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "tif", "tiff":
		return "image/tiff"
	case "jpx", "jp2":
		return "image/jp2"
	case "webp":
		return "image/webp"
	}
	return http.DetectContentType(payload)
}
