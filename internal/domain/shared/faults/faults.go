package faults

import (
	"errors"
	"strings"
)

// Kinds classify every error the core returns. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrState      = errors.New("invalid state")
	ErrUpstream   = errors.New("upstream failure")
)

// Error is a message tagged with one of the kinds above.
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

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: ErrValidation, Msg: msg} }

func NotFound(msg string) error { return &Error{Kind: ErrNotFound, Msg: msg} }

func State(msg string) error { return &Error{Kind: ErrState, Msg: msg} }

// Upstream wraps a persistence or delivery failure. A nil err yields nil.
func Upstream(msg string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return err
	}
	return &Error{Kind: ErrUpstream, Msg: msg, Err: err}
}

// ConflictError reports the bookings that occupy a requested range.
type ConflictError struct {
	Msg        string
	BookingIDs []string
}

func Conflict(msg string, bookingIDs ...string) *ConflictError {
	return &ConflictError{Msg: msg, BookingIDs: append([]string(nil), bookingIDs...)}
}

func (e *ConflictError) Error() string {
	if len(e.BookingIDs) == 0 {
		return e.Msg
	}
	return e.Msg + " (" + strings.Join(e.BookingIDs, ", ") + ")"
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// KindOf returns the kind sentinel carried by err, or nil when err is untagged.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrState, ErrUpstream} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
