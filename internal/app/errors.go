package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSessionNotFound   = errors.New("session not found")
	ErrGenerationFailure = errors.New("generation failed")
	ErrCodeInvalid       = errors.New("invalid code")
	ErrCodeExpired       = errors.New("code expired")
	ErrConfiguration     = errors.New("configuration error")
	ErrInvalidCredential = errors.New("invalid email or password")
)

// Error is a classified failure carrying the message shown to the caller.
// errors.Is matches it against its Kind.
type Error struct {
	Kind   error
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// wrapError prefixes the cause's message, e.g. "Failed to get answer: <cause>".
func wrapError(kind error, cause error, prefix string) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf("%s: %v", prefix, cause), Cause: cause}
}

// Detail returns the caller-facing message of err.
func Detail(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Detail
	}
	return err.Error()
}
