package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecometri/catalog-converter/config"
	"github.com/ecometri/catalog-converter/internal/app"
	"github.com/ecometri/catalog-converter/internal/domain"
	"github.com/ecometri/catalog-converter/internal/logging"
)

// Converter is the part of the catalog service the commands drive
type Converter interface {
	ConvertPDF(ctx context.Context, data []byte) (*domain.ConversionResult, error)
	ScrapeStore(ctx context.Context, storeURL string) (*domain.ConversionResult, error)
}

// ConverterFactory builds the converter once flags and environment are known
type ConverterFactory func(ctx context.Context) (Converter, error)

// NewRootCmd creates the catalogctl command tree wired to the real catalog service
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultConverter)
}

func defaultConverter(ctx context.Context) (Converter, error) {
	// config.Load picks up .env
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.Server.Environment, cfg.Server.LogLevel)

	service, err := app.NewCatalogService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return service, nil
}

func newRootCmd(factory ConverterFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Convert PDF catalogs and online stores into the Ecometri import CSV",
		Long: `catalogctl runs the same conversion pipelines as the HTTP service, offline.

Configuration comes from config.yaml, .env and ECOMETRI_* environment variables.
Image hosting and AI enhancement are used when they are configured.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newPDFCmd(factory))
	cmd.AddCommand(newScrapeCmd(factory))

	return cmd
}

// run builds the converter, runs one pipeline and writes its CSV
func run(cmd *cobra.Command, factory ConverterFactory, output string, convert func(context.Context, Converter) (*domain.ConversionResult, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	converter, err := factory(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	result, err := convert(ctx, converter)
	if err != nil {
		return err
	}

	path, err := writeResult(cmd, result, output)
	if err != nil {
		return err
	}
	printReport(cmd, result.Report, path)
	return nil
}
