package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ecometri/catalog-converter/internal/domain"
)

func newPDFCmd(factory ConverterFactory) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pdf <file.pdf>",
		Short: "Convert a PDF catalog to CSV",
		Example: `  # Write ecometri_pdf_<batch>_<ts>.csv in the current directory
  catalogctl pdf catalogo.pdf

  # Print the CSV to stdout
  catalogctl pdf catalogo.pdf -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			return run(cmd, factory, output, func(ctx context.Context, c Converter) (*domain.ConversionResult, error) {
				return c.ConvertPDF(ctx, data)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: generated filename, - for stdout)")

	return cmd
}

func newScrapeCmd(factory ConverterFactory) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "scrape <store-url>",
		Short:   "Scrape an online store to CSV",
		Example: `  catalogctl scrape https://tienda.example.com -o tienda.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, factory, output, func(ctx context.Context, c Converter) (*domain.ConversionResult, error) {
				return c.ScrapeStore(ctx, args[0])
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: generated filename, - for stdout)")

	return cmd
}

// writeResult stores the CSV and returns where it went
func writeResult(cmd *cobra.Command, result *domain.ConversionResult, output string) (string, error) {
	if output == "-" {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), result.CSV); err != nil {
			return "", fmt.Errorf("failed to write CSV: %w", err)
		}
		return "stdout", nil
	}

	if output == "" {
		output = result.Filename
	}
	if err := os.WriteFile(output, []byte(result.CSV), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", output, err)
	}
	return output, nil
}

func printReport(cmd *cobra.Command, report domain.Report, path string) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "batch %s (%s): %d products -> %s\n", report.BatchID, report.SourceType, report.TotalProducts, path)
	if report.PlatformDetected != "" {
		fmt.Fprintf(out, "  platform: %s\n", report.PlatformDetected)
	}
	fmt.Fprintf(out, "  images: %d extracted, %d uploaded, %d products with images\n",
		report.ImagesExtracted, report.ImagesUploaded, report.ProductsWithImages)
	fmt.Fprintf(out, "  enhanced: %d\n", report.ProductsEnhanced)

	kinds := make([]string, 0, len(report.Warnings))
	for kind := range report.Warnings {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(out, "  warning %s: %d\n", kind, report.Warnings[kind])
	}
}
