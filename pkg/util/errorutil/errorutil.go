package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

const (
	CodeValidation   = "VALIDATION_FAILED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeMethod       = "METHOD_NOT_ALLOWED"
	CodePersistence  = "PERSISTENCE_FAILED"
	CodeInternal     = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	Details    []string
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

// Messages returns the client facing message list.
func (e *DomainError) Messages() []string {
	if len(e.Details) > 0 {
		return e.Details
	}
	return []string{e.Message}
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details []string) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// NewValidationError carries every field message collected for the request.
func NewValidationError(messages ...string) error {
	summary := "validation failed"
	if len(messages) == 1 {
		summary = messages[0]
	}
	return NewDomainError(CodeValidation, summary, http.StatusBadRequest, messages)
}

func NewNotFound(resource string) error {
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func NewMethodNotAllowed() error {
	return NewDomainError(CodeMethod, "Method not allowed", http.StatusMethodNotAllowed, nil)
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewPersistenceError reports a failed write; message is shown to the client, err is logged.
func NewPersistenceError(message string, err error) error {
	return &DomainError{
		Code:       CodePersistence,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "Internal server error",
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
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource").(*DomainError)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case http.StatusNotFound:
			return NewNotFound("resource").(*DomainError)
		case http.StatusMethodNotAllowed:
			return NewMethodNotAllowed().(*DomainError)
		case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
			return NewValidationError("Bad request").(*DomainError)
		case http.StatusUnauthorized:
			return NewUnauthorized(fiberErr.Message).(*DomainError)
		case http.StatusForbidden:
			return NewForbidden(fiberErr.Message).(*DomainError)
		}
	}
	return NewInternalError(err).(*DomainError)
}

// IsNotFound reports whether err maps to a 404.
func IsNotFound(err error) bool {
	return ToDomainError(err).HTTPStatus == http.StatusNotFound
}
