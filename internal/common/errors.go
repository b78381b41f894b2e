package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Processing and API errors. Wrap these with fmt.Errorf("%w: ...") so
// callers can match with errors.Is.
var (
	ErrConversionFailed  = errors.New("pdf conversion failed")
	ErrNoOutputProduced  = errors.New("conversion produced no images")
	ErrDeliveryFailed    = errors.New("webhook delivery failed")
	ErrUnknownJob        = errors.New("unknown job")
	ErrNoFilesSubmitted  = errors.New("no files submitted")
	ErrNoRecordsToExport = errors.New("no invoices to export")
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
