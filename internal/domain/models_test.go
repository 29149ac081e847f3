package domain

import (
	"errors"
	"testing"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		filename string
		want     Kind
	}{
		{"brochure.pdf", KindPDF},
		{"SCAN.PDF", KindPDF},
		{"cards.Pdf", KindPDF},
		{"photo.jpg", KindImage},
		{"photo.png", KindImage},
		{"noextension", KindImage},
		{"archive.pdf.zip", KindImage},
		{"", KindImage},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectKind(tt.filename); got != tt.want {
				t.Errorf("DetectKind(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestHasEmail(t *testing.T) {
	tests := []struct {
		name      string
		candidate ContactCandidate
		want      bool
	}{
		{
			name:      "valid email",
			candidate: ContactCandidate{Email: String("a@x.com")},
			want:      true,
		},
		{
			name:      "nil email",
			candidate: ContactCandidate{Name: String("Alice")},
			want:      false,
		},
		{
			name:      "empty string email",
			candidate: ContactCandidate{Email: String("")},
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.candidate.HasEmail(); got != tt.want {
				t.Errorf("HasEmail() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterLeads(t *testing.T) {
	candidates := []ContactCandidate{
		{Name: String("Alice"), Email: String("a@x.com")},
		{Name: String("Bob")},
		{Name: String("Carol"), Email: String("")},
		{Name: String("Dave"), Email: String("d@x.com")},
	}

	leads := FilterLeads(candidates)

	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}
	if *leads[0].Email != "a@x.com" || *leads[1].Email != "d@x.com" {
		t.Errorf("leads out of order: %v, %v", *leads[0].Email, *leads[1].Email)
	}
}

func TestFilterLeadsEmptyInput(t *testing.T) {
	leads := FilterLeads(nil)
	if leads == nil {
		t.Fatal("FilterLeads must return a non-nil slice")
	}
	if len(leads) != 0 {
		t.Errorf("expected no leads, got %d", len(leads))
	}
}

func TestDomainErrorType(t *testing.T) {
	err := DecodeError("bad upload", errors.New("truncated"))

	if !IsType(err, ErrorTypeDecode) {
		t.Error("expected decode error type")
	}
	if IsType(err, ErrorTypeOCR) {
		t.Error("decode error should not match ocr type")
	}

	wrapped := OCRError("inference failed", err)
	if !IsType(wrapped, ErrorTypeOCR) {
		t.Error("expected ocr error type on wrapper")
	}
	if !errors.Is(wrapped, err) {
		t.Error("wrapped error should unwrap to cause")
	}

	if IsType(errors.New("plain"), ErrorTypeDecode) {
		t.Error("plain error should not match any domain type")
	}
}
