// Package apperror defines the error taxonomy from spec §7 and maps each
// kind to an HTTP status, grounded on the teacher's flat sentinel-error
// table (shipping/internal/domain/repository/errors.go) generalized with a
// Kind so handlers derive status codes in one place instead of per-handler
// type switches.
package apperror

import (
	"errors"
	"net/http"
)

// Kind is one row of the error taxonomy in spec §7.
type Kind int

const (
	KindAuth Kind = iota
	KindPrecondition
	KindForbidden
	KindNotFound
	KindConflict
	KindUpstreamTransient
	KindUpstreamFatal
	KindInternal
)

// Error is an apperror-wrapped error carrying a Kind and a user-facing
// message (Korean where spec §6 specifies literal Korean copy).
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode maps a Kind to the HTTP status spec §7 assigns it.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindPrecondition:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstreamTransient, KindUpstreamFatal, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New builds a new Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a new Error of the given kind wrapping err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts an *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusCode derives the HTTP status for any error: apperror.Error carries
// its own, everything else degrades to 500 per spec §7's "Upstream fatal"
// row.
func StatusCode(err error) int {
	if e, ok := As(err); ok {
		return e.StatusCode()
	}
	return http.StatusInternalServerError
}
