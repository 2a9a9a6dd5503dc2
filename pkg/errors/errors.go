package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBotNotFound          = errors.New("bot not found")
	ErrJobNotFound          = errors.New("job not found")
	ErrBlobNotFound         = errors.New("file not found in object storage")
	ErrEmptyContent         = errors.New("file is empty or not decodable as text")
	ErrNoChunks             = errors.New("no chunks produced from file content")
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTimeout              = errors.New("operation timed out")
	ErrInternal             = errors.New("internal error")
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

// IsContentError reports whether err marks permanently malformed input.
// Content errors skip the retry budget and go straight to the dead letter
// list, unlike transient infrastructure errors.
func IsContentError(err error) bool {
	return errors.Is(err, ErrEmptyContent) || errors.Is(err, ErrNoChunks)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrBotNotFound), errors.Is(err, ErrJobNotFound), errors.Is(err, ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrEmbeddingUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
