package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ecometri/catalog-converter/config"
	"github.com/ecometri/catalog-converter/internal/app"
	httpDelivery "github.com/ecometri/catalog-converter/internal/delivery/http"
	"github.com/ecometri/catalog-converter/internal/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Setup(cfg.Server.Environment, cfg.Server.LogLevel)

	log.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Strs("allowed_origins", cfg.Server.AllowedOrigins).
		Msg("starting Ecometri catalog converter v1.0.0")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize usecase layer with its infrastructure
	catalogService, err := app.NewCatalogService(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize catalog service")
	}

	log.Info().
		Bool("image_hosting", catalogService.HostingEnabled()).
		Bool("ai_enhancement", catalogService.EnhancementEnabled()).
		Str("pdf_strategy", cfg.Extraction.PDFStrategy).
		Msg("catalog service ready")

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(catalogService, int64(cfg.Server.MaxUploadMB)<<20)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
			os.Exit(1)
		}
		log.Info().Msg("server stopped")
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
