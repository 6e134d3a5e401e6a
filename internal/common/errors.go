package common

import (
	"errors"
	"fmt"
)

// AppError carries a stable code next to the human message and its cause.
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

// Error codes surfaced to callers.
const (
	CodeExtraction   = "EXTRACTION_ERROR"
	CodePacking      = "PACKING_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeConfig       = "CONFIG_ERROR"
	CodeDatabase     = "DATABASE_ERROR"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	// ErrExtraction marks an input archive that is corrupt or not a zip. Fatal to the job.
	ErrExtraction = errors.New("archive extraction failed")
	// ErrPacking marks an output archive that could not be written. Fatal to the job.
	ErrPacking = errors.New("archive packing failed")
)

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

// CodeOf returns the AppError code carried by err, or a code derived from
// the sentinel it wraps. Unknown errors map to "INTERNAL_ERROR".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrExtraction):
		return CodeExtraction
	case errors.Is(err, ErrPacking):
		return CodePacking
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDatabase):
		return CodeDatabase
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return CodeInvalidInput
	}
	return "INTERNAL_ERROR"
}
