package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	ErrUnknownEntityKind    ErrorKind = "UnknownEntityKind"
	ErrIdentifierNotFound   ErrorKind = "IdentifierNotFound"
	ErrUpstreamUnavailable  ErrorKind = "UpstreamUnavailable"
	ErrQuotaExceeded        ErrorKind = "QuotaExceeded"
	ErrInterpretationFailed ErrorKind = "InterpretationFailed"
)

// Error is the error envelope produced by the interpreter, quota guard and dispatcher.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Errorf builds an Error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error around a cause. An existing *Error is returned unchanged.
func WrapError(kind ErrorKind, err error, message string) *Error {
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}

// AsError extracts the envelope from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// KindOf returns the envelope kind for err, or an empty kind when err is not an envelope.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

// UpstreamError maps transport failures onto UpstreamUnavailable, noting timeouts.
func UpstreamError(err error, what string) *Error {
	if e, ok := AsError(err); ok {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: ErrUpstreamUnavailable, Message: what + " timed out", Cause: err}
	}
	return &Error{Kind: ErrUpstreamUnavailable, Message: what + " is unavailable", Cause: err}
}
