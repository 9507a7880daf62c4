package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrStorage      = errors.New("storage error")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error tags a message with one of the sentinel kinds above.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...interface{}) error {
	return New(ErrInvalidInput, format, args...)
}

func Forbidden(format string, args ...interface{}) error {
	return New(ErrForbidden, format, args...)
}

func Conflict(format string, args ...interface{}) error {
	return New(ErrConflict, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return New(ErrNotFound, format, args...)
}

// Storage wraps an underlying store failure. Already-tagged errors pass
// through unchanged so a Conflict raised inside a transaction survives it.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return &Error{Kind: ErrStorage, Msg: "storage failure", Err: err}
}

// KindOf returns the sentinel an error is tagged with, ErrStorage for
// anything untagged.
func KindOf(err error) error {
	for _, kind := range []error{ErrInvalidInput, ErrForbidden, ErrConflict, ErrNotFound, ErrUnauthorized, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrStorage
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrForbidden:
		return http.StatusForbidden
	case ErrConflict:
		return http.StatusConflict
	case ErrNotFound:
		return http.StatusNotFound
	case ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides storage details from callers.
func PublicMessage(err error) string {
	if KindOf(err) == ErrStorage {
		return "internal error"
	}
	return err.Error()
}
