package domain

import "net/http"

type ErrorKind int

const (
	ErrKindServer ErrorKind = iota
	ErrKindValidation
	ErrKindAuth
	ErrKindNotFound
	ErrKindRateLimit
)

// AppError is the error currency of the service. Handlers attach it to
// the request context; the response middleware maps the kind to a status
// code. Rate limits surface as 400 to match the external contract.
type AppError struct {
	Kind    ErrorKind
	Message string
	Details any
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Status() int {
	switch e.Kind {
	case ErrKindValidation, ErrKindRateLimit:
		return http.StatusBadRequest
	case ErrKindAuth:
		return http.StatusUnauthorized
	case ErrKindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: ErrKindValidation, Message: message}
}

func NewAuthError(message string) *AppError {
	return &AppError{Kind: ErrKindAuth, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: ErrKindNotFound, Message: message}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{Kind: ErrKindRateLimit, Message: message}
}

func NewServerError(message string) *AppError {
	return &AppError{Kind: ErrKindServer, Message: message}
}
