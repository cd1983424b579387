package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindSlotFull          Kind = "slot_full"
	KindInvalidTransition Kind = "invalid_transition"
	KindDuplicateBooking  Kind = "duplicate_booking"
	KindValidation        Kind = "validation_error"
	KindStoreUnavailable  Kind = "store_unavailable"
)

// Error is a scheduling failure tagged with its Kind. errors.Is matches any
// two Errors of the same Kind, so callers compare against the sentinels below.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrSlotFull          = &Error{Kind: KindSlotFull}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrDuplicateBooking  = &Error{Kind: KindDuplicateBooking}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
)

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func SlotFull(format string, args ...interface{}) *Error {
	return New(KindSlotFull, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return New(KindInvalidTransition, format, args...)
}

func Duplicate(format string, args ...interface{}) *Error {
	return New(KindDuplicateBooking, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

// Unavailable wraps a persistence failure (driver error, timeout, open
// circuit) raised while running op.
func Unavailable(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Msg: op + ": store unavailable", Err: err}
}

// KindOf returns the Kind carried by err, or "" when err is nil or untyped.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsBusiness reports whether err is one of the caller-recoverable rule
// violations, as opposed to an infrastructure failure.
func IsBusiness(err error) bool {
	switch KindOf(err) {
	case KindNotFound, KindSlotFull, KindInvalidTransition, KindDuplicateBooking, KindValidation:
		return true
	}
	return false
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindSlotFull, KindInvalidTransition, KindDuplicateBooking:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
