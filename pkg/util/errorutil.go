package util

import (
	"errors"
	"fmt"
	"net/http"
)

// API error codes. Negative by convention; 0 is reserved for success.
const (
	CodeFail               = -1
	CodeRequestArgsInvalid = -100
	CodeLoginFailure       = -200
	CodeInvalidToken       = -201
	CodeTokenNotFound      = -202
	CodeConnectionRefused  = -203
	CodeDataAccessError    = -300
	CodeUserAlreadyExist   = -1001
	CodeUserNotFound       = -1002
)

// DomainError standardizes application errors. Code and Message form the
// JSON envelope clients receive; HTTPStatus drives the response status.
type DomainError struct {
	Code       int
	Message    string
	HTTPStatus int
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code int, message string, status int) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status}
}

func NewValidationError(message string) error {
	return NewDomainError(CodeRequestArgsInvalid, message, http.StatusBadRequest)
}

func NewLoginFailure() error {
	return NewDomainError(CodeLoginFailure, "Login Failure", http.StatusUnauthorized)
}

func NewInvalidToken() error {
	return NewDomainError(CodeInvalidToken, "Invalid Token", http.StatusUnauthorized)
}

func NewTokenNotFound() error {
	return NewDomainError(CodeTokenNotFound, "Token Not Found", http.StatusUnauthorized)
}

// NewConnectionRefused marks an unreachable backing dependency. 503, never
// coerced into an authentication rejection.
func NewConnectionRefused(err error) error {
	return &DomainError{
		Code:       CodeConnectionRefused,
		Message:    "Connection Refused",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewUserAlreadyExist() error {
	return NewDomainError(CodeUserAlreadyExist, "User Already Exist", http.StatusConflict)
}

func NewUserNotFound() error {
	return NewDomainError(CodeUserNotFound, "User Not Found", http.StatusNotFound)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeFail,
		Message:    "Unknown Failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeFail,
		Message:    "Unknown Failure",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
