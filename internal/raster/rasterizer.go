// Package raster converts uploaded document bytes into page images.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"

	// Single-image uploads may arrive in any of these formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"

	"github.com/crmkit/lead-extractor/internal/domain"
)

// DefaultDPI is the fixed rendering resolution for PDF pages. 200 DPI
// keeps pages legible for OCR without ballooning memory.
const DefaultDPI = 200

// Rasterizer implements domain.Rasterizer using go-fitz for PDFs and the
// image registry for single-image uploads.
type Rasterizer struct {
	dpi    float64
	logger zerolog.Logger
}

// New creates a Rasterizer rendering PDF pages at DefaultDPI.
func New(logger zerolog.Logger) *Rasterizer {
	return &Rasterizer{
		dpi:    DefaultDPI,
		logger: logger.With().Str("component", "raster").Logger(),
	}
}

// Rasterize decodes data according to kind. A PDF yields one page per
// source page in source order; anything else yields exactly one page with
// index 0. An unparseable byte stream fails without a partial page list.
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, kind domain.Kind) ([]domain.Page, error) {
	if kind == domain.KindPDF {
		return r.rasterizePDF(ctx, data)
	}
	return r.decodeImage(data)
}

func (r *Rasterizer) rasterizePDF(ctx context.Context, data []byte) ([]domain.Page, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.DecodeError("failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	r.logger.Debug().Int("pages", pageCount).Msg("Opened PDF")

	pages := make([]domain.Page, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, r.dpi)
		if err != nil {
			return nil, domain.DecodeError(fmt.Sprintf("failed to render page %d", pageNum+1), err)
		}
		pages = append(pages, domain.Page{Index: pageNum, Image: img})
	}

	return pages, nil
}

func (r *Rasterizer) decodeImage(data []byte) ([]domain.Page, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.DecodeError("failed to decode image", err)
	}
	r.logger.Debug().Str("format", format).Msg("Decoded single image")

	return []domain.Page{{Index: 0, Image: toRGBA(img)}}, nil
}

// toRGBA normalizes any decoded image to RGB color so the OCR encoder
// sees a uniform pixel format.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}
