// internal/pkg/apperrors/errors.go
package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error is a domain error carrying the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func BadRequest(message string) *Error   { return New(http.StatusBadRequest, message, nil) }
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message, nil) }
func Forbidden(message string) *Error    { return New(http.StatusForbidden, message, nil) }
func NotFound(message string) *Error     { return New(http.StatusNotFound, message, nil) }
func Conflict(message string) *Error     { return New(http.StatusConflict, message, nil) }

// Internal hides err from the client but keeps it for logs.
func Internal(message string, err error) *Error {
	return New(http.StatusInternalServerError, message, err)
}

// Status returns the HTTP status for err, 500 for anything untyped.
func Status(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}

// Message returns the client-safe message for err.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

// Is reports whether err is an *Error with the given status code.
func Is(err error, code int) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Code == code
}

// Postgres SQLSTATE codes for integrity violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsIntegrityViolation reports any constraint failure raised by the store.
func IsIntegrityViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation, pgNotNullViolation:
		return true
	}
	return false
}
