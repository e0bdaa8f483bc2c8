package notestore

import (
	"errors"
	"fmt"
)

// ErrRemoteRequestFailed is wrapped by every failed request to the note store.
var ErrRemoteRequestFailed = errors.New("note store request failed")

// ErrNotFound indicates a search returned no matching item.
var ErrNotFound = errors.New("note store item not found")

// RequestError is a non-2xx response from the note store.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("note store %s %s: HTTP %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("note store %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error {
	return ErrRemoteRequestFailed
}
