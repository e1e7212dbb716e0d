// Package apperr defines the error taxonomy shared by every service and the
// HTTP layer. Stores wrap infrastructure errors with fmt.Errorf; business
// failures are returned as one of the typed errors here so the HTTP layer can
// map them to a status code without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError indicates a referenced record does not exist, or exists
// outside the caller's scope (the two are deliberately indistinguishable).
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// NotFound returns a NotFoundError for the named resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ConflictError indicates an invariant violation, such as a client
// double-assignment.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// Conflict returns a ConflictError with the given reason.
func Conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

// ForbiddenError indicates an authorization denial. The reason must be safe
// to show to the caller and must not reveal out-of-scope resources.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

// Forbidden returns a ForbiddenError with the given reason.
func Forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// ValidationError indicates malformed input, such as bad pagination values.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validation returns a ValidationError with the given reason.
func Validation(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// HTTPStatus maps an error to the HTTP status code it should surface as.
// Unrecognized errors are infrastructure failures and map to 500.
func HTTPStatus(err error) int {
	var (
		nf *NotFoundError
		cf *ConflictError
		fb *ForbiddenError
		vd *ValidationError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &cf):
		return http.StatusConflict
	case errors.As(err, &fb):
		return http.StatusForbidden
	case errors.As(err, &vd):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the message safe to show to the caller. Infrastructure
// error text is never exposed.
func UserMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
