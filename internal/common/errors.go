package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents application-specific errors.
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

// Pipeline error taxonomy. Every stage converts internal failures into one
// of these kinds before returning control.
var (
	ErrInput       = errors.New("invalid input")        // client-caused, never retried
	ErrDecode      = errors.New("decode failed")        // bytes did not yield a usable raster
	ErrModelCall   = errors.New("model call failed")    // detector / OCR / LLM capability failure
	ErrPersistence = errors.New("persistence failed")   // transactional failure, rolled back
	ErrNotFound    = errors.New("resource not found")
)

// Error constructors.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func InputErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInput)...)
}

func DecodeErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrDecode)...)
}

func ModelCallErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrModelCall)...)
}

// HTTPStatus maps a pipeline error onto its transport-level status. Decode
// failures count as client input, model and persistence failures as server
// faults.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInput), errors.Is(err, ErrDecode):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
