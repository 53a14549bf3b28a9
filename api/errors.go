package api

import (
	"errors"
	"fmt"
)

// APIError is a response the server answered but rejected: a wrapped
// success=false envelope or a body that was not JSON. The server-provided
// message is preserved verbatim in Message.
type APIError struct {
	Status  int    // HTTP status code
	Message string // server-provided error message, or raw body text
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (HTTP %d)", e.Status)
	}
	return e.Message
}

// AsAPIError extracts an *APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
