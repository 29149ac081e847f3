// Package main provides the lead extractor API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/crmkit/lead-extractor/internal/config"
	"github.com/crmkit/lead-extractor/internal/contacts"
	"github.com/crmkit/lead-extractor/internal/observability"
	"github.com/crmkit/lead-extractor/internal/ocr"
	"github.com/crmkit/lead-extractor/internal/pipeline"
	"github.com/crmkit/lead-extractor/internal/raster"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "lead-extractor",
	})

	if cfg.UsesDefaultAPIKey() {
		logger.Warn().Msg("CRM_API_KEY is unset, using the development placeholder credential")
	}

	runtimeClient := ocr.NewRuntimeClient(cfg.OCR.RuntimeURL)
	ocrService := ocr.NewService(runtimeClient, ocr.Config{
		Model:           cfg.OCR.Model,
		WeightsToken:    cfg.OCR.WeightsToken,
		QueueDepth:      cfg.OCR.QueueDepth,
		GenerateTimeout: cfg.OCR.GenerateTimeout,
	}, logger)

	parser := contacts.NewParser(contacts.Config{
		APIKey:  cfg.Contacts.APIKey,
		BaseURL: cfg.Contacts.BaseURL,
		Model:   cfg.Contacts.Model,
		Timeout: cfg.Contacts.Timeout,
	}, logger)

	rasterizer := raster.New(logger)
	docPipeline := pipeline.New(rasterizer, ocrService, parser, logger)

	router := NewRouter(logger, cfg, docPipeline, ocrService)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	// Load the model after the listener is up. Requests arriving before
	// the load completes receive 503 from the extraction handler.
	initErrors := make(chan error, 1)
	go func() {
		initErrors <- ocrService.Initialize(context.Background())
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	fatal := false

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case err := <-initErrors:
		if err != nil {
			logger.Error().Err(err).Msg("OCR model initialization failed")
			fatal = true
			break
		}
		// Model loaded; keep serving until a signal or server error.
		select {
		case err := <-serverErrors:
			logger.Error().Err(err).Msg("Server error")
		case sig := <-shutdown:
			logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		}
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	ocrService.Shutdown(ctx)
	logger.Info().Msg("Server stopped")

	if fatal {
		os.Exit(1)
	}
}
