package domain

import (
	"image"
	"path/filepath"
	"strings"
	"time"
)

// Kind identifies how an uploaded document should be rasterized.
type Kind int

const (
	// KindImage treats the payload as a single raster image.
	KindImage Kind = iota
	// KindPDF treats the payload as a multi-page PDF document.
	KindPDF
)

// DetectKind determines the document kind from the declared filename.
// Anything that is not a PDF is handled as a single image.
func DetectKind(filename string) Kind {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return KindPDF
	}
	return KindImage
}

// Page is one rasterized page of a document. Index is zero-based and
// reflects source order; later stages must not reorder pages.
type Page struct {
	Index int
	Image image.Image
}

// ContactCandidate is a single contact extracted from page text. Fields
// the parser could not find are nil.
type ContactCandidate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// HasEmail reports whether the candidate qualifies as a lead, i.e. it
// carries a non-empty email address.
func (c ContactCandidate) HasEmail() bool {
	return c.Email != nil && *c.Email != ""
}

// Result is the outcome of processing one document.
type Result struct {
	LeadsFound  int                `json:"leads_found"`
	Leads       []ContactCandidate `json:"leads"`
	ProcessedAt time.Time          `json:"processed_at"`
}

// FilterLeads keeps only candidates with a usable email, preserving the
// relative order of the input. The returned slice is never nil so it
// marshals as an empty JSON array.
func FilterLeads(candidates []ContactCandidate) []ContactCandidate {
	leads := make([]ContactCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.HasEmail() {
			leads = append(leads, c)
		}
	}
	return leads
}

// String returns a pointer to s, for building candidates in tests and
// parser normalization.
func String(s string) *string {
	return &s
}
