package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrValidation
	ErrConflict
	ErrInvalidInput
	ErrAuthorization
	ErrAuth
	ErrStorage
)

func (k Kind) String() string {
	switch k {
	case ErrNotFound:
		return "not_found"
	case ErrValidation:
		return "validation"
	case ErrConflict:
		return "conflict"
	case ErrInvalidInput:
		return "invalid_input"
	case ErrAuthorization:
		return "authorization"
	case ErrAuth:
		return "auth"
	case ErrStorage:
		return "storage"
	default:
		return "internal"
	}
}

// AuthCode classifies identity provider failures
type AuthCode string

const (
	AuthCredentialInUse       AuthCode = "CREDENTIAL_IN_USE"
	AuthEmailInUse            AuthCode = "EMAIL_IN_USE"
	AuthProviderAlreadyLinked AuthCode = "PROVIDER_ALREADY_LINKED"
	AuthInvalidToken          AuthCode = "INVALID_TOKEN"
	AuthUnknown               AuthCode = "UNKNOWN"
)

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Code    AuthCode // only set for ErrAuth
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Constructor functions for common error types

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

func InvalidInputf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// Authorization reports a policy violation, raised before any write
func Authorization(msg string) *Error {
	return &Error{Kind: ErrAuthorization, Message: msg}
}

func Authorizationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Auth wraps an identity provider failure
func Auth(code AuthCode, msg string, err error) *Error {
	return &Error{Kind: ErrAuth, Code: code, Message: msg, Err: err}
}

// Storage wraps a store failure. These are retryable.
func Storage(err error) *Error {
	return &Error{Kind: ErrStorage, Message: "storage unavailable", Err: err}
}

func Storagef(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: ErrStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

func Internalf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or ErrInternal
func KindOf(err error) Kind {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Kind
	}
	return ErrInternal
}

// Is reports whether err carries the given kind
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var appErr *Error
	return stderrors.As(err, &appErr) && appErr.Kind == kind
}
