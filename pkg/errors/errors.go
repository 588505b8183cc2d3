package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrIndexMissing = errors.New("index file missing")
	ErrIndexCorrupt = errors.New("index file corrupt")
	ErrNotReady     = errors.New("index not loaded")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("dependency unavailable")
	ErrInternal     = errors.New("internal error")
	ErrTimeout      = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Missing wraps a missing-file error so callers can test for ErrIndexMissing.
func Missing(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIndexMissing, path, err)
}

// Corrupt reports an unparsable index file at the given line (0 for the
// whole file).
func Corrupt(path string, line int, err error) error {
	if line > 0 {
		return fmt.Errorf("%w: %s line %d: %v", ErrIndexCorrupt, path, line, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrIndexCorrupt, path, err)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrIndexMissing), errors.Is(err, ErrIndexCorrupt):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
