package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrContentSource signals a failed call to the content source.
	ErrContentSource = errors.New("content source error")
	// ErrDecode signals a malformed content source response.
	ErrDecode = errors.New("malformed content source response")
	// ErrInvalidPageSize signals a non-positive or unparsable page size.
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPage signals a negative page index.
	ErrInvalidPage = errors.New("invalid page")
	// ErrSessionNotFound signals a missing search session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrClosed signals use of a closed session.
	ErrClosed = errors.New("session closed")
)

// StatusError wraps ErrContentSource with the non-2xx status returned by the content source.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", ErrContentSource.Error(), e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", ErrContentSource.Error(), e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrContentSource }

// NewStatusError creates a content source status error.
func NewStatusError(statusCode int, body string) error {
	return &StatusError{StatusCode: statusCode, Body: body}
}
