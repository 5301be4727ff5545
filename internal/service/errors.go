package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.  Handlers map kinds to HTTP statuses.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindSlotHeld        Kind = "slot_held"
	KindSlotUnavailable Kind = "slot_unavailable"
	KindHoldExpired     Kind = "hold_expired"
	KindInvalidState    Kind = "invalid_state"
	KindUnknownAction   Kind = "unknown_action"
	KindNotFound        Kind = "not_found"
)

// Error is the typed failure returned by the booking and schedule services.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrSlotHeld)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrSlotHeld        = &Error{Kind: KindSlotHeld}
	ErrSlotUnavailable = &Error{Kind: KindSlotUnavailable}
	ErrHoldExpired     = &Error{Kind: KindHoldExpired}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrUnknownAction   = &Error{Kind: KindUnknownAction}
	ErrNotFound        = &Error{Kind: KindNotFound}
)

// KindOf returns the kind of the first *Error in err's chain, or "" when
// err is not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func validationf(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}
