package databank

import (
	"context"
	"errors"
	"fmt"

	"github.com/holocronapp/holocron-server/internal/domain"
)

// Sentinel errors for databank operations.
var (
	ErrNotFound       = errors.New("databank: not found")
	ErrBadRequest     = errors.New("databank: bad request")
	ErrTimeout        = errors.New("databank: request timed out")
	ErrRateLimited    = errors.New("databank: rate limited by server")
	ErrServer         = errors.New("databank: server error")
	ErrNetwork        = errors.New("databank: network error")
	ErrDecode         = errors.New("databank: malformed response")
	ErrUnavailable    = errors.New("databank: temporarily unavailable")
	ErrInvalidRequest = errors.New("databank: invalid request")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op       string // list, get
	Category domain.Category
	ID       string
	Err      error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("databank %s [%s/%s]: %v", e.Op, e.Category, e.ID, e.Err)
	}
	return fmt.Sprintf("databank %s [%s]: %v", e.Op, e.Category, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage is the message shown to end users for this failure.
func (e *Error) UserMessage() string {
	switch {
	case errors.Is(e.Err, ErrNotFound):
		return fmt.Sprintf("%s not found", e.Category)
	case errors.Is(e.Err, ErrServer), errors.Is(e.Err, ErrUnavailable):
		return "Server error. Please try again later."
	case errors.Is(e.Err, ErrNetwork), errors.Is(e.Err, ErrTimeout):
		return "Network error. Please check your connection."
	default:
		return fmt.Sprintf("Failed to fetch %s", e.Category)
	}
}

func wrapError(op string, category domain.Category, id string, err error) error {
	return &Error{Op: op, Category: category, ID: id, Err: err}
}

// countsAsFailure reports whether err says the databank itself is unhealthy.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
