// Package apperr defines the error kinds surfaced by the maintenance core.
// Errors are wrapped with context using %w and classified with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
	ErrInvalidResponse    = errors.New("invalid response")
	ErrInternal           = errors.New("internal error")
)

var kinds = []error{ErrNotFound, ErrInvalidArgument, ErrServiceUnavailable, ErrInvalidResponse, ErrInternal}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// NotFound returns an ErrNotFound with context.
func NotFound(format string, args ...any) error { return wrap(ErrNotFound, format, args...) }

// InvalidArgument returns an ErrInvalidArgument with context.
func InvalidArgument(format string, args ...any) error {
	return wrap(ErrInvalidArgument, format, args...)
}

// ServiceUnavailable returns an ErrServiceUnavailable with context.
func ServiceUnavailable(format string, args ...any) error {
	return wrap(ErrServiceUnavailable, format, args...)
}

// InvalidResponse returns an ErrInvalidResponse with context.
func InvalidResponse(format string, args ...any) error {
	return wrap(ErrInvalidResponse, format, args...)
}

// Internal wraps err as ErrInternal unless it already carries a kind.
func Internal(err error, msg string) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != nil {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrInternal, msg, err)
}

// KindOf returns the sentinel err matches, or nil when it is unclassified.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// HTTPStatus maps an error kind to the status code handlers return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrNotFound:
		return http.StatusNotFound
	case ErrInvalidArgument:
		return http.StatusBadRequest
	case ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrInvalidResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
