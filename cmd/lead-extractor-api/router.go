// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/crmkit/lead-extractor/cmd/lead-extractor-api/handlers"
	"github.com/crmkit/lead-extractor/cmd/lead-extractor-api/middleware"
	"github.com/crmkit/lead-extractor/internal/config"
)

// NewRouter creates the API router with all routes configured.
func NewRouter(logger zerolog.Logger, cfg *config.Config, pipeline handlers.Processor, model handlers.ModelService) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.API.AllowedOrigins))

	// Health probe (unauthenticated). Reports the process is up, not that
	// the model is loaded.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"lead-extractor is running"}`))
	})

	extractHandler := handlers.NewExtractHandler(logger, pipeline, model, cfg.Server.MaxUploadBytes)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.API.Key))
		r.Post("/api/extract-leads", extractHandler.Extract)
	})

	return r
}
