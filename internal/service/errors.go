// Package service holds the booking domain logic: pricing, availability
// checks and the booking lifecycle.  Handlers call into it and translate
// the returned *Error values into HTTP responses.
package service

import (
    "errors"
    "net/http"

    "github.com/iliyamo/car-rental/internal/repository"
)

// Failure kinds.  Compare with errors.Is.
var (
    ErrMissingField  = errors.New("missing field")
    ErrNotFound      = errors.New("not found")
    ErrUnavailable   = errors.New("unavailable")
    ErrInvalidDate   = errors.New("invalid date")
    ErrInvalidRange  = errors.New("invalid range")
    ErrConflict      = errors.New("conflict")
    ErrForbidden     = errors.New("forbidden")
    ErrInvalidStatus = errors.New("invalid status")
    ErrInvalidState  = errors.New("invalid state")
    ErrInternal      = errors.New("internal error")
)

// Error is a domain failure.  Msg is safe to show to clients; Err, when
// set, is the underlying cause and is only logged.
type Error struct {
    Kind error
    Msg  string
    Err  error
}

func (e *Error) Error() string {
    if e.Err != nil {
        return e.Msg + ": " + e.Err.Error()
    }
    return e.Msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
    if e.Err == nil {
        return []error{e.Kind}
    }
    return []error{e.Kind, e.Err}
}

func fail(kind error, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func internal(err error) *Error {
    return &Error{Kind: ErrInternal, Msg: "internal server error", Err: err}
}

// StatusOf maps err to the HTTP status code the API answers with.
// Unknown errors are internal.
func StatusOf(err error) int {
    switch {
    case err == nil:
        return http.StatusOK
    case errors.Is(err, ErrInternal):
        return http.StatusInternalServerError
    case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, ErrForbidden), errors.Is(err, repository.ErrForbidden):
        return http.StatusForbidden
    case errors.Is(err, ErrMissingField), errors.Is(err, ErrUnavailable), errors.Is(err, ErrInvalidDate),
        errors.Is(err, ErrInvalidRange), errors.Is(err, ErrConflict), errors.Is(err, ErrInvalidStatus),
        errors.Is(err, ErrInvalidState):
        return http.StatusBadRequest
    }
    return http.StatusInternalServerError
}

// Message returns the client facing text for err.  Internal failures
// never leak their cause.
func Message(err error) string {
    var e *Error
    if errors.As(err, &e) && !errors.Is(e.Kind, ErrInternal) {
        return e.Msg
    }
    switch {
    case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrForbidden):
        return err.Error()
    }
    return "internal server error"
}
