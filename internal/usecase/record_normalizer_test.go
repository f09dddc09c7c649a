package usecase

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/ecometri/catalog-converter/internal/domain"
)

var fixedNow = time.UnixMilli(1700000000000)

func fixedClock() time.Time { return fixedNow }

func TestMerge(t *testing.T) {
	n := NewRecordNormalizer(fixedClock)

	t.Run("defaults", func(t *testing.T) {
		got := n.Merge(domain.RawProductCandidate{
			Title:      "Ukulele Soprano Natural",
			SourceHint: domain.SourcePDF,
		}, nil, nil, 2)

		assert.Equal(t, "Ukulele Soprano Natural", got.Name)
		assert.Equal(t, "Ukulele Soprano Natural", got.Description)
		assert.Equal(t, "0", got.Price)
		assert.Equal(t, "0", got.Stock)
		assert.Equal(t, "General", got.Category)
		assert.Equal(t, "activo", got.Status)
		assert.Equal(t, "SKU-1700000000000-2", got.SKU)
		assert.Equal(t, []string{"importado", "pdf"}, got.Tags)
		assert.Empty(t, got.Images)
		assert.NotNil(t, got.Images)
		assert.False(t, got.Enhanced)
		assert.Equal(t, domain.Flags{New: true}, got.Flags)
	})

	t.Run("raw fields are kept", func(t *testing.T) {
		got := n.Merge(domain.RawProductCandidate{
			Title:          "Bajo eléctrico",
			Description:    "Cuerpo de aliso",
			Price:          "1299.00",
			CompareAtPrice: "1499.00",
			SKU:            "BJ-3300",
			Category:       "BAJOS",
			Brand:          "Fender",
			Tags:           []string{"bajos", "Importado", ""},
			SourceHint:     domain.SourceWeb,
		}, nil, []string{"a", "b"}, 0)

		assert.Equal(t, "Cuerpo de aliso", got.Description)
		assert.Equal(t, "1299.00", got.Price)
		assert.Equal(t, "1499.00", got.CompareAtPrice)
		assert.Equal(t, "BJ-3300", got.SKU)
		assert.Equal(t, "BAJOS", got.Category)
		assert.Equal(t, "Fender", got.Brand)
		assert.Equal(t, []string{"importado", "web", "bajos"}, got.Tags)
		assert.Equal(t, []string{"a", "b"}, got.Images)
		assert.True(t, got.Flags.OnSale)
	})

	t.Run("successful enhancement takes precedence", func(t *testing.T) {
		got := n.Merge(domain.RawProductCandidate{Title: "ukulele sop nat", Description: "raw"},
			&domain.Enhancement{Title: "Ukulele Soprano Natural", Description: "Ukulele de caoba", Succeeded: true}, nil, 0)

		assert.Equal(t, "Ukulele Soprano Natural", got.Name)
		assert.Equal(t, "Ukulele de caoba", got.Description)
		assert.True(t, got.Enhanced)
	})

	t.Run("empty enhanced fields fall back to raw", func(t *testing.T) {
		got := n.Merge(domain.RawProductCandidate{Title: "Mesa ratona"},
			&domain.Enhancement{Succeeded: true}, nil, 0)

		assert.Equal(t, "Mesa ratona", got.Name)
		assert.Equal(t, "Mesa ratona", got.Description)
	})

	t.Run("unsuccessful enhancement is ignored", func(t *testing.T) {
		got := n.Merge(domain.RawProductCandidate{Title: "Mesa ratona"},
			&domain.Enhancement{Title: "Otra cosa", Succeeded: false}, nil, 0)

		assert.Equal(t, "Mesa ratona", got.Name)
		assert.False(t, got.Enhanced)
	})

	t.Run("caps lengths and images", func(t *testing.T) {
		got := n.Merge(domain.RawProductCandidate{
			Title:       strings.Repeat("ñ", 120),
			Description: strings.Repeat("d", 900),
		}, nil, imageList(8), 0)

		assert.Equal(t, 80, utf8.RuneCountInString(got.Name))
		assert.Equal(t, 500, utf8.RuneCountInString(got.Description))
		assert.Len(t, got.Images, 5)
	})

	t.Run("empty title gets a placeholder name", func(t *testing.T) {
		got := n.Merge(domain.RawProductCandidate{}, nil, nil, 4)

		assert.Equal(t, "Producto 5", got.Name)
		assert.Equal(t, "Producto 5", got.Description)
	})
}

func TestNormalizePrice(t *testing.T) {
	testCases := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"12", "12"},
		{"1234.56", "1234.56"},
		{"$1,234.56", "1234.56"},
		{"gratis", "0"},
		{" 45.00 ", "45.00"},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, normalizePrice(tc.in))
		})
	}
}

func TestMergeBounds(t *testing.T) {
	n := NewRecordNormalizer(fixedClock)
	e, err := NewPDFExtractor(PDFExtractorConfig{})
	if err != nil {
		t.Fatal(err)
	}

	text := strings.Repeat("Producto con un nombre bastante largo para el catálogo, ", 3) + "\n" +
		strings.Repeat("Lámpara colgante ", 11)
	for i, c := range e.Extract(text) {
		p := n.Merge(c, nil, nil, i)
		if utf8.RuneCountInString(p.Name) > MaxNameLength {
			t.Errorf("name too long: %d", utf8.RuneCountInString(p.Name))
		}
		if utf8.RuneCountInString(p.Description) > MaxDescriptionLength {
			t.Errorf("description too long: %d", utf8.RuneCountInString(p.Description))
		}
	}
}
