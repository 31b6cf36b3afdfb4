package api

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrMissingAuth is returned before any network call when no access token is available.
	ErrMissingAuth = goerrors.New("missing access token", goerrors.CategoryAuth).
			WithCode(http.StatusUnauthorized).
			WithTextCode("MISSING_AUTH")
)

// backendError builds the error for a non-success envelope.
func backendError(code int, message string) error {
	if message == "" {
		message = http.StatusText(code)
	}
	if message == "" {
		message = fmt.Sprintf("request failed with code %d", code)
	}
	return goerrors.New(message, goerrors.CategoryExternal).
		WithCode(code).
		WithTextCode("BACKEND_ERROR")
}

func transportError(err error, method, path string) error {
	return goerrors.Wrap(err, goerrors.CategoryExternal, fmt.Sprintf("%s %s: %v", method, path, err)).
		WithTextCode("TRANSPORT_ERROR")
}

func validationError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
		WithCode(http.StatusBadRequest).
		WithTextCode("INVALID_REQUEST")
}

// Message extracts a human-readable message from any error returned by this
// package. It is what stores record in their error field.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *goerrors.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Code returns the envelope or HTTP code carried by err, or 0.
func Code(err error) int {
	var e *goerrors.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsCategory reports whether err carries the given go-errors category.
func IsCategory(err error, category goerrors.Category) bool {
	var e *goerrors.Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}

// IsNotFound reports whether the backend answered with a 404 code.
func IsNotFound(err error) bool {
	return Code(err) == http.StatusNotFound
}
