package usecase

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/textutil"
)

// Headers is the fixed column layout of the import file
var Headers = []string{
	"Name", "Description", "Category", "Subcategory", "Price", "Compare-at Price", "SKU",
	"Barcode", "Stock", "Weight(kg)", "Length(cm)", "Width(cm)", "Height(cm)",
	"Image 1", "Image 2", "Image 3", "Image 4", "Image 5",
	"Variant 1 Name", "Variant 1 Value", "Variant 2 Name", "Variant 2 Value",
	"Variant 3 Name", "Variant 3 Value",
	"Status", "Brand", "Supplier", "Tags", "Shipping Policy", "Return Policy",
	"Featured", "New", "On Sale", "SEO Title", "SEO Description",
}

// ColumnCount is the number of fields in every exported row
const ColumnCount = 35

const (
	flagYes = "sí"
	flagNo  = "no"
)

// CatalogExporter renders canonical products as CSV
type CatalogExporter struct{}

// NewCatalogExporter creates a catalog exporter
func NewCatalogExporter() *CatalogExporter {
	return &CatalogExporter{}
}

// Row maps a canonical product to its 35 output fields
func (e *CatalogExporter) Row(p domain.CanonicalProduct) []string {
	row := make([]string, 0, ColumnCount)
	row = append(row,
		p.Name,
		p.Description,
		p.Category,
		p.Subcategory,
		p.Price,
		p.CompareAtPrice,
		p.SKU,
		"", // barcode
		p.Stock,
		"", "", "", "", // weight and dimensions
	)
	for i := 0; i < MaxImagesPerProduct; i++ {
		if i < len(p.Images) {
			row = append(row, p.Images[i])
		} else {
			row = append(row, "")
		}
	}
	row = append(row, "", "", "", "", "", "") // variants
	row = append(row,
		p.Status,
		p.Brand,
		"", // supplier
		strings.Join(p.Tags, ","),
		"", "", // shipping and return policy
		yesNo(p.Flags.Featured),
		yesNo(p.Flags.New),
		yesNo(p.Flags.OnSale),
		p.Name,
		textutil.Truncate(p.Description, MaxSEODescription),
	)
	return row
}

// Export renders the header row followed by one row per product, joined by newlines
// without a trailing one.
func (e *CatalogExporter) Export(products []domain.CanonicalProduct) string {
	var b strings.Builder
	// error is always nil for strings.Builder
	_ = e.WriteCSV(&b, products)
	return b.String()
}

// WriteCSV streams the export to w
func (e *CatalogExporter) WriteCSV(w io.Writer, products []domain.CanonicalProduct) error {
	if _, err := io.WriteString(w, joinRow(Headers)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, product := range products {
		if _, err := io.WriteString(w, "\n"+joinRow(e.Row(product))); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return nil
}

// Filename returns the download name of an export, e.g. ecometri_pdf_<batch>_<unixms>.csv
func (e *CatalogExporter) Filename(source domain.SourceType, batchID string, at time.Time) string {
	kind := "pdf"
	if source == domain.SourceWeb {
		kind = "store"
	}
	return fmt.Sprintf("ecometri_%s_%s_%d.csv", kind, batchID, at.UnixMilli())
}

func joinRow(fields []string) string {
	escaped := make([]string, len(fields))
	for i, field := range fields {
		escaped[i] = EscapeField(field)
	}
	return strings.Join(escaped, ",")
}

// EscapeField quotes a value containing a comma, double quote or newline, doubling inner
// quotes. Anything else passes through untouched.
func EscapeField(value string) string {
	if !strings.ContainsAny(value, ",\"\n") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func yesNo(v bool) string {
	if v {
		return flagYes
	}
	return flagNo
}
