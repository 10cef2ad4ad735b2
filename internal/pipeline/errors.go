package pipeline

import (
	"context"
	"errors"
	"net"
	"net/url"

	"github.com/snarg/scribed/internal/transcribe"
)

// Category is the coarse, user-visible classification of a failure.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryNetwork    Category = "network"
	CategoryRemote     Category = "remote"
	CategoryInternal   Category = "internal"
)

// Error is the single structured failure the pipeline surfaces to callers:
// a human-readable message plus a coarse category, never a raw stack trace.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// CategoryOf returns the category of err, or CategoryInternal for errors
// that did not originate in the pipeline.
func CategoryOf(err error) Category {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryInternal
}

// toError wraps an arbitrary failure into a categorized *Error. Remote API
// errors keep their service-provided message; transport failures become
// network errors surfaced unmodified underneath.
func toError(err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	var apiErr *transcribe.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return &Error{Category: CategoryRemote, Message: msg, Err: err}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Category: CategoryNetwork, Message: err.Error(), Err: err}
	}

	return &Error{Category: CategoryInternal, Message: err.Error(), Err: err}
}
