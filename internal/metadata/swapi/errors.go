package swapi

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for SWAPI operations.
var (
	ErrNotFound         = errors.New("swapi: not found")
	ErrTimeout          = errors.New("swapi: request timed out")
	ErrRateLimited      = errors.New("swapi: rate limited by server")
	ErrServer           = errors.New("swapi: server error")
	ErrNetwork          = errors.New("swapi: network error")
	ErrDecode           = errors.New("swapi: malformed response")
	ErrInvalidReference = errors.New("swapi: invalid reference")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op       string // search, get, probe
	Endpoint Endpoint
	Query    string // search term or id, if applicable
	Err      error
}

func (e *Error) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("swapi %s [%s/%s]: %v", e.Op, e.Endpoint, e.Query, e.Err)
	}
	return fmt.Sprintf("swapi %s [%s]: %v", e.Op, e.Endpoint, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op string, endpoint Endpoint, query string, err error) error {
	return &Error{Op: op, Endpoint: endpoint, Query: query, Err: err}
}

// IsTransient reports whether err indicates SWAPI itself is struggling, as
// opposed to the record not existing, the payload being odd, or the caller
// giving up.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrNetwork) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, ErrRateLimited)
}
