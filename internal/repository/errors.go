// Package repository holds the MySQL data access layer.  Sentinel errors
// defined here let the service and handler layers tell failure scenarios
// apart without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is wrapped by every entity specific not-found error.
	ErrNotFound = errors.New("not found")

	ErrUserNotFound    = notFound("user not found")
	ErrCarNotFound     = notFound("car not found")
	ErrBookingNotFound = notFound("booking not found")

	// ErrForbidden is returned when the caller attempts an operation on a
	// resource they do not own.  Handlers translate it into HTTP 403.
	ErrForbidden = errors.New("forbidden")

	ErrEmailExists = errors.New("email already exists")
)

type notFoundError struct{ msg string }

func notFound(msg string) error { return &notFoundError{msg: msg} }

func (e *notFoundError) Error() string { return e.msg }

// Is makes every entity specific not-found error match ErrNotFound.
func (e *notFoundError) Is(t error) bool { return t == ErrNotFound }

// isDuplicateKey reports whether err is MySQL error 1062.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
