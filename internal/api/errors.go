package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoSession is returned before any request when no login session is stored
	ErrNoSession = errors.New("not logged in")
	// ErrTransport wraps failures where no HTTP response was received
	ErrTransport = errors.New("failed to connect")
)

// Error is a non-2xx response from the API
type Error struct {
	Status  int
	Message string // server-provided message, may be empty
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, http.StatusText(e.Status))
}

// UserMessage returns the server's message for a notification, or fallback
// when the response carried none
func (e *Error) UserMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	return fallback
}

// IsUnauthorized reports whether err means the session is missing or rejected
func IsUnauthorized(err error) bool {
	if errors.Is(err, ErrNoSession) {
		return true
	}
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}
