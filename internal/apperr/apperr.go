// Package apperr carries the error taxonomy shared by the service layer and
// the HTTP transport. Every business rule violation is tagged with a Kind so
// the transport can map it to a status code without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation policy decisions.
type Kind int

const (
	// Internal is the zero value: an unexpected downstream fault.
	Internal Kind = iota
	// Validation marks malformed input, rejected before any mutation.
	Validation
	// NotFound marks an unknown order, product or user.
	NotFound
	// Forbidden marks an ownership or role mismatch.
	Forbidden
	// InvalidState marks an operation not permitted in the current order status.
	InvalidState
	// InsufficientStock marks a quantity exceeding available stock.
	InsufficientStock
	// ProductUnavailable marks an order against an inactive product.
	ProductUnavailable
	// Unauthorized marks a failed webhook signature verification.
	Unauthorized
)

// Error is a kind-tagged error. It wraps an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a kind-tagged error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an underlying error with a kind and context message.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind from err. Untagged errors report Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
