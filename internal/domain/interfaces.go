package domain

import (
	"context"
	"image"
)

// Rasterizer converts raw document bytes into an ordered sequence of pages.
type Rasterizer interface {
	// Rasterize decodes data according to kind. It returns all pages in
	// source order, or an error without emitting a partial page list.
	Rasterize(ctx context.Context, data []byte, kind Kind) ([]Page, error)
}

// TextExtractor reads the text content of a single page image.
type TextExtractor interface {
	ExtractText(ctx context.Context, img image.Image) (string, error)
}

// ContactParser turns free text into contact candidates.
//
// Parse never fails: a missing credential, a remote error, or malformed
// output all degrade to an empty result. Callers cannot, and must not,
// distinguish "found nothing" from "parsing failed".
type ContactParser interface {
	Parse(ctx context.Context, text string) []ContactCandidate
}
