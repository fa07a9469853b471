package ferry

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrStreamClosed is returned by Stream.Next after the stream has been
	// cancelled via Close
	ErrStreamClosed = errors.New("stream closed")
)

// HTTPError is an error carrying an HTTP status code and a message. It is
// the error type produced by path resolution and consumed by the http
// package when mapping failures to responses.
type HTTPError struct {
	Status  int
	Message string
}

// NewHTTPError constructs an HTTPError with the given status and message.
// An empty message defaults to the standard status text.
func NewHTTPError(status int, message string) *HTTPError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPError{Status: status, Message: message}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

var (
	// ErrMalformedPath is returned when a relative path is absolute,
	// contains a NUL byte, or is otherwise not usable as root-relative
	// input. It maps to 400 Bad Request.
	ErrMalformedPath = NewHTTPError(http.StatusBadRequest, "Malformed Path")
	// ErrForbiddenPath is returned when a relative path would escape the
	// root after normalization. It maps to 403 Forbidden.
	ErrForbiddenPath = NewHTTPError(http.StatusForbidden, "")
)
