package domain

import (
	"errors"
	"fmt"
)

// ErrorType classifies domain-specific errors.
type ErrorType string

const (
	ErrorTypeDecode      ErrorType = "decode"
	ErrorTypeOCR         ErrorType = "ocr"
	ErrorTypeAPI         ErrorType = "api"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeUnavailable ErrorType = "unavailable"
)

// DomainError carries an error type alongside the message so the HTTP
// layer can map failures to status codes without string matching.
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error.
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// DecodeError marks an unparseable upload (corrupt PDF, unsupported image).
func DecodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeDecode, message, err)
}

// OCRError marks a failure of the inference runtime during extraction.
func OCRError(message string, err error) *DomainError {
	return NewError(ErrorTypeOCR, message, err)
}

// APIError marks a failed call to an external HTTP API.
func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

// ConfigError marks invalid or missing configuration.
func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

// UnavailableError marks a request that arrived while the service cannot
// accept work (model not loaded, extraction queue full).
func UnavailableError(message string, err error) *DomainError {
	return NewError(ErrorTypeUnavailable, message, err)
}

// IsType reports whether err is a DomainError of the given type.
func IsType(err error, t ErrorType) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type == t
	}
	return false
}
