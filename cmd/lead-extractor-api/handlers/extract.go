// Package handlers provides HTTP handlers for the lead extractor API.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crmkit/lead-extractor/internal/domain"
)

// Processor runs the document pipeline.
type Processor interface {
	Process(ctx context.Context, filename string, data []byte) (*domain.Result, error)
}

// ModelService is the slice of the OCR service the handler needs: the
// readiness gate and the request-scoped cleanup hint.
type ModelService interface {
	Ready() bool
	ReleaseCachedMemory(ctx context.Context)
}

// ExtractHandler handles document extraction requests.
type ExtractHandler struct {
	logger    zerolog.Logger
	pipeline  Processor
	model     ModelService
	maxUpload int64
}

// NewExtractHandler creates the extraction handler.
func NewExtractHandler(logger zerolog.Logger, pipeline Processor, model ModelService, maxUpload int64) *ExtractHandler {
	return &ExtractHandler{
		logger:    logger,
		pipeline:  pipeline,
		model:     model,
		maxUpload: maxUpload,
	}
}

// Extract handles POST /api/extract-leads: a multipart upload under the
// "file" field. Responses: 200 with the result, 503 while the model is
// not yet loaded, 500 for any processing failure.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if !h.model.Ready() {
		writeError(w, http.StatusServiceUnavailable, "OCR model not initialized")
		return
	}

	// Best-effort accelerator cleanup on every exit path. Detached from
	// the request context, which is already canceled by the time the
	// deferred call runs.
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.model.ReleaseCachedMemory(ctx)
	}()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read uploaded file: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read uploaded file: "+err.Error())
		return
	}

	docID := uuid.New()
	logger := h.logger.With().
		Str("doc_id", docID.String()).
		Str("filename", header.Filename).
		Logger()
	logger.Info().Int("bytes", len(data)).Msg("Processing uploaded document")

	result, err := h.pipeline.Process(r.Context(), header.Filename, data)
	if err != nil {
		logger.Error().Err(err).Msg("Document processing failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info().Int("leads", result.LeadsFound).Msg("Document processed")
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
