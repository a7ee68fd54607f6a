package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a service failure so the HTTP layer can pick a status
// code without inspecting messages.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindNotFound
	KindForbidden
	KindBadRequest
	KindConflict
	KindUnauthorized
	KindRateLimited
)

// Error is a classified service error with a caller-facing message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NewNotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewForbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NewBadRequest(message string) error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func NewConflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func NewUnauthorized(message string) error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func NewRateLimited(message string) error {
	return &Error{Kind: KindRateLimited, Message: message}
}

// WrapInternal attaches a caller-facing message to an unexpected error.
func WrapInternal(err error, message string) error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the classification of err, or KindInternal for plain errors.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsForbidden(err error) bool    { return KindOf(err) == KindForbidden }
func IsBadRequest(err error) bool   { return KindOf(err) == KindBadRequest }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }
func IsRateLimited(err error) bool  { return KindOf(err) == KindRateLimited }
