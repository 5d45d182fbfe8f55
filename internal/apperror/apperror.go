package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConfiguration = errors.New("configuration error")
	ErrGeneration    = errors.New("generation error")
	ErrPersistence   = errors.New("persistence error")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // safe to show to callers
	Field   string
	Fields  []FieldError
	Cause   error // internal detail, never rendered
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
		Fields:  []FieldError{{Field: field, Message: message}},
	}
}

// InvalidFields reports several field problems at once.
func InvalidFields(fields []FieldError) *AppError {
	e := &AppError{
		Err:     ErrValidation,
		Message: "request validation failed",
		Fields:  fields,
	}
	if len(fields) > 0 {
		e.Field = fields[0].Field
	}
	return e
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// Configuration marks a missing server-side setting. Callers must not be
// able to tell it apart from Unauthorized.
func Configuration(setting string) *AppError {
	return &AppError{
		Err:     ErrConfiguration,
		Message: fmt.Sprintf("%s is not configured", setting),
	}
}

func Generation(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrGeneration,
		Message: message,
		Cause:   cause,
	}
}

func Persistence(operation string, cause error) *AppError {
	return &AppError{
		Err:     ErrPersistence,
		Message: operation + " failed",
		Cause:   cause,
	}
}
