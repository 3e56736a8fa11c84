package actuator

import (
	"errors"
	"fmt"

	"github.com/hollis-dev/deskmate/pkg/models"
)

// Error attaches a taxonomy kind to a failure. Handlers classify their own
// failures with it; the executor reads the kind and never re-interprets.
type Error struct {
	Kind models.ErrorKind
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error.
func NewError(kind models.ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// WrapBackend classifies a backend failure as backend_error, preserving an
// existing classification if one is present.
func WrapBackend(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: models.ErrBackend, Err: err}
}

// KindOf extracts the taxonomy kind from err, defaulting to internal_error
// for unclassified failures.
func KindOf(err error) models.ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return models.ErrInternal
}
