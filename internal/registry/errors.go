package registry

import (
	"errors"
	"fmt"

	"github.com/roach88/nsreg/internal/loader"
	"github.com/roach88/nsreg/internal/transport"
)

// Error is a failure reported by the registry itself, as opposed to errors
// passed through from transports, evaluators or listeners.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Identifier is the identifier being processed.
	Identifier string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes registry errors.
type ErrorCode string

const (
	// ErrCodeMissingBinding indicates use found no target and could not load
	// one. Only reported in strict mode.
	ErrCodeMissingBinding ErrorCode = "MISSING_BINDING"

	// ErrCodeInvalidIdentifier indicates an identifier that breaks the grammar.
	ErrCodeInvalidIdentifier ErrorCode = "INVALID_IDENTIFIER"

	// ErrCodeClosed indicates the registry was closed.
	ErrCodeClosed ErrorCode = "CLOSED"
)

func (e *Error) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s: %s (identifier=%s)", e.Code, e.Message, e.Identifier)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsMissingBinding reports whether err is a strict-mode missing binding.
func IsMissingBinding(err error) bool {
	return hasCode(err, ErrCodeMissingBinding)
}

// IsInvalidIdentifier reports whether err is an identifier grammar failure.
func IsInvalidIdentifier(err error) bool {
	return hasCode(err, ErrCodeInvalidIdentifier)
}

// IsClosed reports whether err was caused by using a closed registry.
func IsClosed(err error) bool {
	return hasCode(err, ErrCodeClosed)
}

// IsTransportUnavailable reports whether err is the fatal condition of no
// transport being able to serve a URI.
func IsTransportUnavailable(err error) bool {
	return transport.IsUnavailable(err)
}

// IsLoadFailed reports whether err is a recoverable load failure, one that
// has already been reported through an includeError event.
func IsLoadFailed(err error) bool {
	return loader.IsStatusError(err)
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newMissingBindingError(identifier string) *Error {
	return &Error{
		Code:       ErrCodeMissingBinding,
		Message:    "target not found and not loaded",
		Identifier: identifier,
	}
}

func newInvalidIdentifierError(identifier string, err error) *Error {
	return &Error{
		Code:       ErrCodeInvalidIdentifier,
		Message:    err.Error(),
		Identifier: identifier,
		Err:        err,
	}
}

var errClosed = &Error{Code: ErrCodeClosed, Message: "registry is closed"}
