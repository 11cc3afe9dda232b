package domain

import "fmt"

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeOCR        ErrorType = "ocr"
	ErrorTypeTableParse ErrorType = "tableparse"
	ErrorTypeDetection  ErrorType = "detection"
	ErrorTypeIO         ErrorType = "io"
)

// DomainError represents a domain-specific error with context
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

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors

// ValidationError covers bad input (missing file, not a PDF, bad params).
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

// ConfigError is fatal: required configuration or model assets are
// missing, so processing never starts.
func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

// RenderError marks a page whose rasterization failed; the page is
// skipped and the document continues.
func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

// OCRError marks a page whose OCR invocation failed; the page yields an
// empty token list and the document continues.
func OCRError(message string, err error) *DomainError {
	return NewError(ErrorTypeOCR, message, err)
}

// TableParseError marks a detection output whose filename or CSV could
// not be parsed; the entry is dropped from the merge set.
func TableParseError(message string, err error) *DomainError {
	return NewError(ErrorTypeTableParse, message, err)
}

// DetectionError covers failures talking to the table-detection model.
func DetectionError(message string, err error) *DomainError {
	return NewError(ErrorTypeDetection, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}
