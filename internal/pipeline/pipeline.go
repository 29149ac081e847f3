// Package pipeline orchestrates document processing: rasterization,
// per-page OCR, per-page contact parsing, aggregation and filtering.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/crmkit/lead-extractor/internal/domain"
)

// Pipeline turns an uploaded document into a list of validated leads.
type Pipeline struct {
	raster   domain.Rasterizer
	ocr      domain.TextExtractor
	contacts domain.ContactParser
	logger   zerolog.Logger
}

// New creates a document pipeline from its collaborators.
func New(raster domain.Rasterizer, ocr domain.TextExtractor, contacts domain.ContactParser, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		raster:   raster,
		ocr:      ocr,
		contacts: contacts,
		logger:   logger.With().Str("component", "pipeline").Logger(),
	}
}

// Process runs the full extraction workflow for one document. A
// rasterization or OCR failure aborts the whole document; contact parsing
// failures degrade to zero candidates for the affected page and never
// surface here.
func (p *Pipeline) Process(ctx context.Context, filename string, data []byte) (*domain.Result, error) {
	kind := domain.DetectKind(filename)

	pages, err := p.raster.Rasterize(ctx, data, kind)
	if err != nil {
		return nil, err
	}
	p.logger.Info().Str("filename", filename).Int("pages", len(pages)).Msg("Document rasterized")

	var candidates []domain.ContactCandidate
	for _, page := range pages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := p.ocr.ExtractText(ctx, page.Image)
		if err != nil {
			return nil, err
		}

		// Empty OCR output never reaches the parser.
		if text == "" {
			p.logger.Debug().Int("page", page.Index).Msg("Page yielded no text")
			continue
		}

		pageCandidates := p.contacts.Parse(ctx, text)
		p.logger.Debug().
			Int("page", page.Index).
			Int("candidates", len(pageCandidates)).
			Msg("Page processed")
		candidates = append(candidates, pageCandidates...)
	}

	leads := domain.FilterLeads(candidates)
	p.logger.Info().
		Str("filename", filename).
		Int("raw_candidates", len(candidates)).
		Int("leads", len(leads)).
		Msg("Document processed")

	return &domain.Result{
		LeadsFound:  len(leads),
		Leads:       leads,
		ProcessedAt: time.Now(),
	}, nil
}
